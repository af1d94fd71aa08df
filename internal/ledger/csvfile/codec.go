package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

var (
	errNoHeader  = errors.New("missing header row")
	errMalformed = errors.New("malformed row")
)

const bom = "\ufeff"

// encode renders the header followed by one record per row.
func encode(labels ledger.Labels, rows []core.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(labels.Header[:]); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(labels.Record(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses a table document written in either label set.
func decode(data []byte) ([]core.Transaction, error) {
	data = bytes.TrimPrefix(data, []byte(bom))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errNoHeader
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = ledger.Columns

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !ledger.IsHeader(header) {
		return nil, errNoHeader
	}

	rows := make([]core.Transaction, 0)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		t, err := ledger.ParseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %v", errMalformed, line, err)
		}
		rows = append(rows, t)
	}
	return rows, nil
}
