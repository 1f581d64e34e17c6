package hash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dinohash/pkg/codec"
	"dinohash/pkg/config"
	"dinohash/pkg/cursor"
	"dinohash/pkg/pager"

	"github.com/otiai10/copy"
)

// HashIndex is a HashTable stored in a pair of files, each read and written
// through its own pager.
type HashIndex[K, V any] struct {
	table       *HashTable[K, V]
	dirPager    *pager.Pager // The pager backing the directory file
	bucketPager *pager.Pager // The pager backing the bucket file
}

// Open opens the index stored at dirPath and bucketPath, creating both files
// if neither exists. See New for the other arguments.
func Open[K, V any](
	dirPath, bucketPath string,
	recordsPerBucket int,
	keys codec.Codec[K],
	values codec.Codec[V],
	hash HashFunc[K],
	opts ...Option,
) (*HashIndex[K, V], error) {
	dirPager, err := pager.New(dirPath)
	if err != nil {
		return nil, &IOError{Op: "open", Path: dirPath, Err: err}
	}
	bucketPager, err := pager.New(bucketPath)
	if err != nil {
		dirPager.Close()
		return nil, &IOError{Op: "open", Path: bucketPath, Err: err}
	}
	table, err := New(dirPager, bucketPager, recordsPerBucket, keys, values, hash, opts...)
	if err != nil {
		dirPager.Close()
		bucketPager.Close()
		return nil, err
	}
	return &HashIndex[K, V]{table: table, dirPager: dirPager, bucketPager: bucketPager}, nil
}

// OpenTable opens the index whose files are basePath plus the configured
// directory and bucket suffixes.
func OpenTable[K, V any](
	basePath string,
	recordsPerBucket int,
	keys codec.Codec[K],
	values codec.Codec[V],
	hash HashFunc[K],
	opts ...Option,
) (*HashIndex[K, V], error) {
	return Open(basePath+config.DirectorySuffix, basePath+config.BucketSuffix, recordsPerBucket, keys, values, hash, opts...)
}

// GetName returns the base name of the index's bucket file without its suffix.
func (index *HashIndex[K, V]) GetName() string {
	return strings.TrimSuffix(filepath.Base(index.bucketPager.GetFileName()), config.BucketSuffix)
}

// GetTable returns the underlying table.
func (index *HashIndex[K, V]) GetTable() *HashTable[K, V] {
	return index.table
}

// GetDirectoryPager returns the pager backing the directory file.
func (index *HashIndex[K, V]) GetDirectoryPager() *pager.Pager {
	return index.dirPager
}

// GetBucketPager returns the pager backing the bucket file.
func (index *HashIndex[K, V]) GetBucketPager() *pager.Pager {
	return index.bucketPager
}

// Closes the index by closing the table and both pagers.
func (index *HashIndex[K, V]) Close() error {
	return index.table.Close()
}

// Insert given element.
func (index *HashIndex[K, V]) Insert(key K, value V) (InsertResult, error) {
	return index.table.Insert(key, value)
}

// LookupAll finds every value stored under key.
func (index *HashIndex[K, V]) LookupAll(key K) ([]V, error) {
	return index.table.LookupAll(key)
}

// LookupOne finds the first value stored under key.
func (index *HashIndex[K, V]) LookupOne(key K) (V, bool, error) {
	return index.table.LookupOne(key)
}

// Delete given element.
func (index *HashIndex[K, V]) Delete(key K, value V) (bool, error) {
	return index.table.Delete(key, value)
}

// DeleteFirst deletes the first element with key.
func (index *HashIndex[K, V]) DeleteFirst(key K) (bool, error) {
	return index.table.DeleteFirst(key)
}

// DeleteAll deletes every element with key.
func (index *HashIndex[K, V]) DeleteAll(key K) (bool, error) {
	return index.table.DeleteAll(key)
}

// Select all elements.
func (index *HashIndex[K, V]) Select() ([]Entry[K, V], error) {
	return index.table.Select()
}

// CursorAtStart returns a cursor to the first element.
func (index *HashIndex[K, V]) CursorAtStart() (cursor.Cursor[K, V], error) {
	return index.table.CursorAtStart()
}

// Stats reports the shape of the index.
func (index *HashIndex[K, V]) Stats() (Stats, error) {
	return index.table.Stats()
}

// Verify checks the index's structure.
func (index *HashIndex[K, V]) Verify() error {
	return index.table.Verify()
}

// Print all elements.
func (index *HashIndex[K, V]) Print(w io.Writer) {
	index.table.Print(w)
}

// PrintBucket prints the n-th bucket of the bucket file.
func (index *HashIndex[K, V]) PrintBucket(n int64, w io.Writer) error {
	return index.table.PrintBucket(n, w)
}

// Backup syncs the index and copies both of its files into dir.
func (index *HashIndex[K, V]) Backup(dir string) error {
	if err := index.table.Sync(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0775); err != nil {
		return err
	}
	var errs []error
	for _, src := range []string{index.dirPager.GetFileName(), index.bucketPager.GetFileName()} {
		if err := copy.Copy(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			errs = append(errs, &IOError{Op: "backup", Path: src, Err: err})
		}
	}
	return errors.Join(errs...)
}
