package keyvaluedb

import "errors"

var (
	// ErrDBClosed is returned when operating on a closed store.
	ErrDBClosed = errors.New("keyvaluedb is closed")

	// ErrKeyNotFound is returned when a key doesn't exist.
	ErrKeyNotFound = errors.New("key not found")
)
