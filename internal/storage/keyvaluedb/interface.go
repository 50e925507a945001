// Package keyvaluedb abstracts the persistent key-value store backing the
// auction ledger.
package keyvaluedb

// DB defines the operations any key-value backend must support.
type DB interface {
	Read(key []byte) ([]byte, error)
	Write(key, value []byte) error
	Delete(key []byte) error

	// Iterate visits every key in [start, end) in ascending order until fn
	// returns false.
	Iterate(start, end []byte, fn func(key, value []byte) bool) error

	Close() error
}
