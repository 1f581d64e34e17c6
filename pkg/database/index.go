package database

import (
	"io"

	"dinohash/pkg/codec"
	"dinohash/pkg/config"
	"dinohash/pkg/cursor"
	"dinohash/pkg/hash"
)

// Index is a named table mapping string keys to int64 values. Keys may hold
// several values.
type Index interface {
	Close() error
	GetName() string
	Insert(string, int64) (hash.InsertResult, error)
	LookupAll(string) ([]int64, error)
	LookupOne(string) (int64, bool, error)
	Delete(string, int64) (bool, error)
	DeleteFirst(string) (bool, error)
	DeleteAll(string) (bool, error)
	Select() ([]hash.Entry[string, int64], error)
	CursorAtStart() (cursor.Cursor[string, int64], error)
	Stats() (hash.Stats, error)
	Verify() error
	Backup(dir string) error
	Print(io.Writer)
	PrintBucket(int64, io.Writer) error
}

var _ Index = (*hash.HashIndex[string, int64])(nil)

// keyCodec bounds every table's keys.
var keyCodec = codec.String(config.DefaultStringMaxBytes)

// openIndex opens the table stored at basePath.
func openIndex(basePath string, recordsPerBucket int, opts ...hash.Option) (Index, error) {
	index, err := hash.OpenTable(basePath, recordsPerBucket, keyCodec, codec.Int64(), nil, opts...)
	if err != nil {
		return nil, err
	}
	return index, nil
}
