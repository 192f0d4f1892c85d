package kvs

import (
	"errors"

	"github.com/nconghau/MiniKVS/internal/command"
)

var (
	// ErrKeyNotFound is returned when removing a key that is not present.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorruptIndex is returned when the index points at data that does not
	// decode to a Set of the requested key.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrIO wraps failures of the underlying file system.
	ErrIO = errors.New("i/o error")

	// ErrCompaction is returned by a mutation whose write succeeded but whose
	// triggered compaction failed. The mutation itself is durable.
	ErrCompaction = errors.New("compaction failed")

	ErrClosed        = errors.New("store is closed")
	ErrEmptyKey      = errors.New("key should not be empty")
	ErrKeyTooLarge   = errors.New("key exceeds maximum size")
	ErrValueTooLarge = errors.New("value exceeds maximum size")

	// ErrMalformedRecord is returned when a segment holds undecodable bytes.
	ErrMalformedRecord = command.ErrMalformedRecord
)
