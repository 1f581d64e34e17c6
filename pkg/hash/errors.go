package hash

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is matched by every *IOError.
	ErrIO = errors.New("i/o error")

	// ErrCorrupt is returned when a file header, pointer or slot cannot be valid.
	ErrCorrupt = errors.New("index files are corrupt")

	// ErrDuplicationLimit is matched by every *DuplicationLimitError.
	ErrDuplicationLimit = errors.New("bucket still full after splitting")

	// ErrDirectoryFull is returned when the directory cannot double any further.
	ErrDirectoryFull = errors.New("directory reached its maximum depth")

	// ErrClosed is returned by operations on a closed table.
	ErrClosed = errors.New("hash table is closed")

	// ErrEmptyIndex is returned when opening a cursor over an index with no records.
	ErrEmptyIndex = errors.New("all buckets are empty")
)

// IOError wraps a failure of one of the backing files.
type IOError struct {
	Op   string // read, write, size, truncate, sync or close
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// DuplicationLimitError reports an insertion abandoned because its bucket
// was still full after the allowed number of splits. Key and Value hold the
// rejected pair.
type DuplicationLimitError struct {
	Key    any
	Value  any
	Splits int
}

func (e *DuplicationLimitError) Error() string {
	return fmt.Sprintf("insert (%v, %v) ignored after %d splits: too many records share its hash", e.Key, e.Value, e.Splits)
}

func (e *DuplicationLimitError) Is(target error) bool { return target == ErrDuplicationLimit }

// corruptf returns an error wrapping ErrCorrupt.
func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
