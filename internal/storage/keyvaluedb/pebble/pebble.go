// Package pebble provides the production key-value backend.
package pebble

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/gbmlabs/gbmd/internal/storage/keyvaluedb"
)

// DB wraps a pebble database behind the keyvaluedb.DB interface.
type DB struct {
	db *pebble.DB
}

var _ keyvaluedb.DB = (*DB)(nil)

// Open opens (or creates) a pebble database at path.
func Open(path string) (*DB, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Read(key []byte) ([]byte, error) {
	value, closer, err := d.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, keyvaluedb.ErrKeyNotFound
		}
		return nil, err
	}
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) Write(key, value []byte) error {
	return d.db.Set(key, value, pebble.Sync)
}

func (d *DB) Delete(key []byte) error {
	return d.db.Delete(key, pebble.Sync)
}

func (d *DB) Iterate(start, end []byte, fn func(key, value []byte) bool) error {
	iter, err := d.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

func (d *DB) Close() error {
	return d.db.Close()
}
