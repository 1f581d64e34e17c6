package hash

import (
	"errors"
	"io"
)

// File is the random-access byte file the index stores its directory and
// buckets in. *pager.Pager satisfies it.
type File interface {
	io.ReaderAt
	io.WriterAt
	Name() string
	Size() (int64, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}

// readFull reads exactly len(p) bytes at off. A short read is ErrCorrupt,
// any other failure an *IOError.
func readFull(f File, p []byte, off int64) error {
	n, err := f.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return corruptf("%s: read %d of %d bytes at %d", f.Name(), n, len(p), off)
	}
	return &IOError{Op: "read", Path: f.Name(), Err: err}
}

// writeFull writes p at off.
func writeFull(f File, p []byte, off int64) error {
	if _, err := f.WriteAt(p, off); err != nil {
		return &IOError{Op: "write", Path: f.Name(), Err: err}
	}
	return nil
}

// fileSize returns the current size of f.
func fileSize(f File) (int64, error) {
	size, err := f.Size()
	if err != nil {
		return 0, &IOError{Op: "size", Path: f.Name(), Err: err}
	}
	return size, nil
}
