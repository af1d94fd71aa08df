// Package boltdb stores the ledger in a bbolt file.
//
// Rows live in the transactions bucket keyed by a big-endian sequence, so
// cursor order is insertion order. The backup bucket holds the pre-delete
// snapshot and the meta bucket records whether that snapshot is restorable.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// Bucket names.
const (
	BucketTransactions = "transactions"
	BucketBackup       = "backup"
	BucketMeta         = "meta"
)

var keyUndo = []byte("undo")

// Store is a ledger.Store backed by bbolt. bbolt's file lock excludes other
// processes for as long as the store is open.
type Store struct {
	db   *bolt.DB
	path string
}

var _ ledger.Store = (*Store)(nil)

// Open opens or creates the database. timeout bounds the wait for another
// process holding the file.
func Open(path string, timeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, core.NewStorageError("open", path, err)
	}
	s := &Store{db: db, path: path}
	if err := s.Initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates any missing bucket.
func (s *Store) Initialize(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketTransactions, BucketBackup, BucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	return s.wrap("initialize", err)
}

func (s *Store) Append(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return s.wrap("marshal", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketTransactions))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
	return s.wrap("append", err)
}

func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readRows(tx.Bucket([]byte(BucketTransactions)))
		return err
	})
	if err != nil {
		return nil, s.wrap("list", err)
	}
	return out, nil
}

func (s *Store) DeleteAt(_ context.Context, position int) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		rows := tx.Bucket([]byte(BucketTransactions))
		if err := ledger.CheckPosition(position, count(rows)); err != nil {
			return err
		}
		if err := tx.DeleteBucket([]byte(BucketBackup)); err != nil {
			return err
		}
		backup, err := tx.CreateBucket([]byte(BucketBackup))
		if err != nil {
			return err
		}

		var target []byte
		i := 0
		c := rows.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := backup.Put(k, v); err != nil {
				return err
			}
			if i == position {
				target = append([]byte(nil), k...)
			}
			i++
		}
		if err := tx.Bucket([]byte(BucketMeta)).Put(keyUndo, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
			return err
		}
		return rows.Delete(target)
	})
	return s.wrap("delete", err)
}

func (s *Store) UndoLastDelete(_ context.Context) (bool, error) {
	var restored bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(BucketMeta))
		if meta.Get(keyUndo) == nil {
			return nil
		}
		seq := tx.Bucket([]byte(BucketTransactions)).Sequence()
		if err := tx.DeleteBucket([]byte(BucketTransactions)); err != nil {
			return err
		}
		rows, err := tx.CreateBucket([]byte(BucketTransactions))
		if err != nil {
			return err
		}
		// Keep the sequence moving forward so restored keys never collide
		// with later appends.
		if err := rows.SetSequence(seq); err != nil {
			return err
		}
		err = tx.Bucket([]byte(BucketBackup)).ForEach(func(k, v []byte) error {
			return rows.Put(k, v)
		})
		if err != nil {
			return err
		}
		if err := tx.DeleteBucket([]byte(BucketBackup)); err != nil {
			return err
		}
		if _, err := tx.CreateBucket([]byte(BucketBackup)); err != nil {
			return err
		}
		if err := meta.Delete(keyUndo); err != nil {
			return err
		}
		restored = true
		return nil
	})
	return restored, s.wrap("undo", err)
}

func (s *Store) UndoAvailable(_ context.Context) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket([]byte(BucketMeta)).Get(keyUndo) != nil
		return nil
	})
	return ok, s.wrap("undo status", err)
}

func (s *Store) wrap(op string, err error) error {
	return core.NewStorageError(op, s.path, err)
}

func readRows(b *bolt.Bucket) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0)
	err := b.ForEach(func(k, v []byte) error {
		var t core.Transaction
		if err := json.Unmarshal(v, &t); err != nil {
			return fmt.Errorf("decode row %d: %v", binary.BigEndian.Uint64(k), err)
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

func count(b *bolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
