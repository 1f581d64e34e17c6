package testutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrInjected is returned by FaultyFile once its fault triggers.
var ErrInjected = errors.New("injected fault")

// File mirrors the index's file interface.
type File interface {
	io.ReaderAt
	io.WriterAt
	Name() string
	Size() (int64, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}

// MemFile is an in-memory File.
type MemFile struct {
	name   string
	data   []byte
	closed bool
	Syncs  int // Number of Sync calls
}

// NewMemFile returns an empty MemFile.
func NewMemFile(name string) *MemFile {
	return &MemFile{name: name}
}

// NewMemFileWith returns a MemFile holding a copy of data.
func NewMemFileWith(name string, data []byte) *MemFile {
	return &MemFile{name: name, data: append([]byte(nil), data...)}
}

func (f *MemFile) Name() string { return f.name }

// Bytes returns a copy of the file's contents.
func (f *MemFile) Bytes() []byte {
	return append([]byte(nil), f.data...)
}

func (f *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("read %s: file closed", f.name)
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s: negative offset", f.name)
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *MemFile) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("write %s: file closed", f.name)
	}
	if off < 0 {
		return 0, fmt.Errorf("write %s: negative offset", f.name)
	}
	if end := off + int64(len(p)); end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	return copy(f.data[off:], p), nil
}

func (f *MemFile) Size() (int64, error) {
	if f.closed {
		return 0, fmt.Errorf("stat %s: file closed", f.name)
	}
	return int64(len(f.data)), nil
}

func (f *MemFile) Truncate(size int64) error {
	if size < int64(len(f.data)) {
		f.data = f.data[:size]
	} else {
		f.data = append(f.data, make([]byte, size-int64(len(f.data)))...)
	}
	return nil
}

func (f *MemFile) Sync() error {
	f.Syncs++
	return nil
}

func (f *MemFile) Close() error {
	if f.closed {
		return fmt.Errorf("close %s: already closed", f.name)
	}
	f.closed = true
	return nil
}

// FaultyFile wraps a File and starts failing after a budget of operations.
type FaultyFile struct {
	File
	WritesLeft int  // Successful writes allowed before every write fails; negative disables
	FailReads  bool // Fail every read
	FailSize   bool // Fail every Size call
}

// NewFaultyFile wraps f with no faults armed.
func NewFaultyFile(f File) *FaultyFile {
	return &FaultyFile{File: f, WritesLeft: -1}
}

func (f *FaultyFile) ReadAt(p []byte, off int64) (int, error) {
	if f.FailReads {
		return 0, ErrInjected
	}
	return f.File.ReadAt(p, off)
}

func (f *FaultyFile) WriteAt(p []byte, off int64) (int, error) {
	if f.WritesLeft == 0 {
		return 0, ErrInjected
	}
	if f.WritesLeft > 0 {
		f.WritesLeft--
	}
	return f.File.WriteAt(p, off)
}

func (f *FaultyFile) Size() (int64, error) {
	if f.FailSize {
		return 0, ErrInjected
	}
	return f.File.Size()
}
