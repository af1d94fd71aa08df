package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names the ledger mutation a change message reports.
type Operation string

const (
	OpAppend Operation = "append"
	OpDelete Operation = "delete"
	OpUndo   Operation = "undo"
)

func (o Operation) Valid() bool {
	return o == OpAppend || o == OpDelete || o == OpUndo
}

// LedgerChangeMessage announces a committed mutation. It carries no row data;
// consumers read the table themselves.
type LedgerChangeMessage struct {
	ID        uuid.UUID `json:"id"`
	Operation Operation `json:"operation"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage stamps a change with a fresh id and the current time.
// rows is the table length after the mutation.
func NewLedgerChangeMessage(op Operation, rows int) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		ID:        uuid.New(),
		Operation: op,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes and checks a message body.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Operation.Valid() {
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("missing message id")
	}
	return &msg, nil
}
