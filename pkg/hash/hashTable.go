package hash

import (
	"errors"
	"fmt"
	"io"

	"dinohash/pkg/codec"
	"dinohash/pkg/entry"
	"dinohash/pkg/logger"
)

// InsertResult reports what an insertion did.
type InsertResult int

const (
	Inserted  InsertResult = iota + 1 // The pair was stored
	Duplicate                         // The exact pair was already present; nothing changed
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("InsertResult(%d)", int(r))
	}
}

// Entry is a key-value pair read back from the table.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Stats summarizes the shape of a table.
type Stats struct {
	GlobalDepth      int
	DirectorySize    int
	Buckets          int64
	RecordsPerBucket int
	ActiveRecords    int
}

// A HashTable is a disk-backed index that uses extendible hashing.
//
// Keys may hold several values. Every operation reads and writes through to
// the two backing files before returning. Lookups may run concurrently with
// each other, but a mutation needs the table to itself.
type HashTable[K, V any] struct {
	format     entry.Format[K, V]
	hash       HashFunc[K]
	dir        *Directory
	buckets    *bucketFile
	log        *logger.Logger
	splitLimit int
	closed     bool
}

// New opens the table stored in dirFile and bucketFile, initializing both
// when they are empty. recordsPerBucket only applies to new files. A nil
// hash selects the default hash, which exists only for builtin key codecs.
func New[K, V any](
	dirFile, bucketFile File,
	recordsPerBucket int,
	keys codec.Codec[K],
	values codec.Codec[V],
	hash HashFunc[K],
	opts ...Option,
) (*HashTable[K, V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	format, err := entry.NewFormat(keys, values)
	if err != nil {
		return nil, err
	}
	if hash == nil {
		if hash, err = defaultHash(keys, o.hasher); err != nil {
			return nil, err
		}
	}
	dirSize, err := fileSize(dirFile)
	if err != nil {
		return nil, err
	}
	buckets, created, err := openBucketFile(bucketFile, recordsPerBucket, format.Layout(), o.logger)
	if err != nil {
		return nil, err
	}
	table := &HashTable[K, V]{
		format:     format,
		hash:       hash,
		buckets:    buckets,
		log:        o.logger,
		splitLimit: o.splitLimit,
	}
	switch {
	case created && dirSize == 0:
		first := buckets.newBucket(INITIAL_LOCAL_DEPTH)
		if err = buckets.append(first); err != nil {
			return nil, err
		}
		if table.dir, err = createDirectory(dirFile, first.offset); err != nil {
			return nil, err
		}
	case created || dirSize == 0:
		return nil, corruptf("%s and %s: only one of the index files is empty", dirFile.Name(), bucketFile.Name())
	default:
		if table.dir, err = loadDirectory(dirFile); err != nil {
			return nil, err
		}
		for i, p := range table.dir.pointers {
			if !buckets.isBucket(p) {
				return nil, corruptf("%s: entry %d points at %d, not a bucket", dirFile.Name(), i, p)
			}
		}
	}
	table.log.LogOpen(table.dir.GetDepth(), buckets.recordsPerBucket, buckets.numBuckets(), created)
	return table, nil
}

// GetDepth returns the global depth.
func (table *HashTable[K, V]) GetDepth() int {
	return table.dir.GetDepth()
}

// GetDirectory returns the table's directory.
func (table *HashTable[K, V]) GetDirectory() *Directory {
	return table.dir
}

// GetRecordsPerBucket returns the number of slots in every bucket.
func (table *HashTable[K, V]) GetRecordsPerBucket() int {
	return table.buckets.recordsPerBucket
}

// GetFormat returns the key and value codecs of the table.
func (table *HashTable[K, V]) GetFormat() entry.Format[K, V] {
	return table.format
}

// GetBucket loads the bucket at offset.
func (table *HashTable[K, V]) GetBucket(offset int64) (*HashBucket, error) {
	return table.buckets.read(offset)
}

// GetBucketOffsets returns the offset of every bucket, in file order.
func (table *HashTable[K, V]) GetBucketOffsets() []int64 {
	offsets := make([]int64, 0, table.buckets.numBuckets())
	for off := FIRST_BUCKET_OFFSET; off < table.buckets.end; off += table.buckets.blockSize() {
		offsets = append(offsets, off)
	}
	return offsets
}

// pending is an insertion waiting on the work list.
type pending struct {
	key, value []byte // Padded regions
	hash       uint64
	splits     int // Splits already made on behalf of this insertion
}

// Insert adds the pair, splitting buckets as needed.
//
// A full bucket is split and the insertion retried. Each split pushes the
// records it displaced onto the work list ahead of the retry, so they are
// placed first. Once an insertion has caused splitLimit splits and its bucket
// is still full, it is abandoned with a *DuplicationLimitError; the splits
// already made are kept.
func (table *HashTable[K, V]) Insert(key K, value V) (InsertResult, error) {
	if table.closed {
		return 0, ErrClosed
	}
	k, v, err := table.format.Pack(key, value)
	if err != nil {
		return 0, err
	}
	work := []pending{{key: k, value: v, hash: table.hash(key)}}
	for {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		bucket, err := table.bucketFor(p.hash)
		if err != nil {
			return 0, err
		}
		status, err := bucket.Insert(p.key, p.value)
		if err != nil {
			return 0, err
		}
		if status != bucketFull {
			if len(work) > 0 {
				continue
			}
			if status == bucketDuplicate {
				return Duplicate, nil
			}
			return Inserted, nil
		}
		if p.splits >= table.splitLimit {
			if len(work) > 0 {
				return 0, corruptf("no room for a displaced record in bucket %d", bucket.offset)
			}
			table.log.LogDuplicationLimit(bucket.offset, bucket.localDepth, p.splits)
			return 0, &DuplicationLimitError{Key: key, Value: value, Splits: p.splits}
		}
		moved, err := table.split(bucket)
		if err != nil {
			return 0, err
		}
		p.splits++
		work = append(work, p)
		for i := len(moved) - 1; i >= 0; i-- {
			h, err := table.hashRegion(moved[i].Key())
			if err != nil {
				return 0, err
			}
			work = append(work, pending{key: moved[i].Key(), value: moved[i].Value(), hash: h, splits: p.splits})
		}
	}
}

// split grows the full bucket's local depth, appends its sibling and
// repoints half of the bucket's directory entries at the sibling. The
// bucket is rewritten empty; its former records are returned for
// re-insertion.
func (table *HashTable[K, V]) split(bucket *HashBucket) ([]entry.Record, error) {
	depth := bucket.GetDepth()
	if depth > table.dir.GetDepth() {
		return nil, corruptf("bucket %d has local depth %d > global depth %d", bucket.offset, depth, table.dir.GetDepth())
	}
	if table.dir.FindPointerTo(bucket.offset) < 0 {
		return nil, corruptf("bucket %d is not in the directory", bucket.offset)
	}
	// If we are splitting, check if we need to double the table first.
	if depth == table.dir.GetDepth() {
		err := table.dir.Double()
		table.log.LogDouble(table.dir.GetDepth(), err)
		if err != nil {
			return nil, err
		}
	}
	moved := bucket.Active()
	sibling := bucket.Split()
	bucket.Reset()
	if err := table.buckets.append(sibling); err != nil {
		return nil, err
	}
	if err := table.buckets.write(bucket); err != nil {
		return nil, err
	}
	// Entries that shared the old bucket differ from each other only in bit
	// depth and above (and in bit 0, which a depth-1 bucket never used).
	// Those with bit depth set move to the sibling.
	bit := 1 << depth
	for i := 0; i < table.dir.Size(); i++ {
		if table.dir.GetPointer(i) == bucket.offset && i&bit != 0 {
			if err := table.dir.SetPointer(i, sibling.offset); err != nil {
				return nil, err
			}
		}
	}
	table.log.LogSplit(bucket.offset, sibling.offset, bucket.localDepth, len(moved))
	return moved, nil
}

// LookupAll returns every value stored under key, in slot order.
func (table *HashTable[K, V]) LookupAll(key K) ([]V, error) {
	bucket, k, err := table.bucketForKey(key)
	if err != nil {
		return nil, err
	}
	regions := bucket.LookupAll(k)
	values := make([]V, 0, len(regions))
	for _, region := range regions {
		value, err := table.format.UnpackValue(region)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// LookupOne returns the first value stored under key.
func (table *HashTable[K, V]) LookupOne(key K) (value V, found bool, err error) {
	bucket, k, err := table.bucketForKey(key)
	if err != nil {
		return value, false, err
	}
	region, found := bucket.LookupOne(k)
	if !found {
		return value, false, nil
	}
	value, err = table.format.UnpackValue(region)
	return value, err == nil, err
}

// Delete removes the first record holding exactly key and value.
// NOTE: does not coalesce (ie doesn't merge buckets when they become empty)
func (table *HashTable[K, V]) Delete(key K, value V) (bool, error) {
	bucket, k, err := table.bucketForKey(key)
	if err != nil {
		return false, err
	}
	v, err := table.format.PackValue(value)
	if err != nil {
		return false, err
	}
	return bucket.Delete(k, v)
}

// DeleteFirst removes the first record with key.
func (table *HashTable[K, V]) DeleteFirst(key K) (bool, error) {
	bucket, k, err := table.bucketForKey(key)
	if err != nil {
		return false, err
	}
	return bucket.DeleteFirst(k)
}

// DeleteAll removes every record with key.
func (table *HashTable[K, V]) DeleteAll(key K) (bool, error) {
	bucket, k, err := table.bucketForKey(key)
	if err != nil {
		return false, err
	}
	return bucket.DeleteAll(k)
}

// Select returns all entries in this table, in bucket file order.
func (table *HashTable[K, V]) Select() ([]Entry[K, V], error) {
	ret := make([]Entry[K, V], 0)
	err := table.forEachBucket(func(bucket *HashBucket) error {
		for _, rec := range bucket.Active() {
			key, value, err := table.format.Unpack(rec)
			if err != nil {
				return err
			}
			ret = append(ret, Entry[K, V]{Key: key, Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Stats reports the table's depth, size and record count.
func (table *HashTable[K, V]) Stats() (Stats, error) {
	stats := Stats{
		GlobalDepth:      table.dir.GetDepth(),
		DirectorySize:    table.dir.Size(),
		Buckets:          table.buckets.numBuckets(),
		RecordsPerBucket: table.buckets.recordsPerBucket,
	}
	err := table.forEachBucket(func(bucket *HashBucket) error {
		stats.ActiveRecords += bucket.NumActive()
		return nil
	})
	return stats, err
}

// Print writes a string representation of this entire table (directory and buckets) to the specified writer.
func (table *HashTable[K, V]) Print(w io.Writer) {
	io.WriteString(w, "====\n")
	table.dir.Print(w)
	err := table.forEachBucket(func(bucket *HashBucket) error {
		io.WriteString(w, "====\n")
		bucket.Print(w)
		return nil
	})
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	io.WriteString(w, "====\n")
}

// PrintBucket writes the n-th bucket of the bucket file.
func (table *HashTable[K, V]) PrintBucket(n int64, w io.Writer) error {
	if n < 0 || n >= table.buckets.numBuckets() {
		return fmt.Errorf("bucket %d out of range [0, %d)", n, table.buckets.numBuckets())
	}
	bucket, err := table.buckets.read(FIRST_BUCKET_OFFSET + n*table.buckets.blockSize())
	if err != nil {
		return err
	}
	bucket.Print(w)
	return nil
}

// Sync flushes both files to stable storage.
func (table *HashTable[K, V]) Sync() error {
	if table.closed {
		return ErrClosed
	}
	for _, f := range []File{table.dir.file, table.buckets.file} {
		if err := f.Sync(); err != nil {
			return &IOError{Op: "sync", Path: f.Name(), Err: err}
		}
	}
	return nil
}

// Close syncs and closes both files.
func (table *HashTable[K, V]) Close() error {
	if table.closed {
		return ErrClosed
	}
	table.closed = true
	var errs []error
	for _, f := range []File{table.dir.file, table.buckets.file} {
		if err := f.Sync(); err != nil {
			errs = append(errs, &IOError{Op: "sync", Path: f.Name(), Err: err})
		}
		if err := f.Close(); err != nil {
			errs = append(errs, &IOError{Op: "close", Path: f.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

/////////////////////////////////////////////////////////////////////////////
////////////////////////// HashTable Helper Functions ///////////////////////
/////////////////////////////////////////////////////////////////////////////

// bucketFor loads the bucket a hash routes to.
func (table *HashTable[K, V]) bucketFor(hash uint64) (*HashBucket, error) {
	return table.buckets.read(table.dir.GetPointer(table.dir.Route(hash)))
}

// bucketForKey encodes key and loads its bucket. Encoding fails before any
// file is read.
func (table *HashTable[K, V]) bucketForKey(key K) (*HashBucket, []byte, error) {
	if table.closed {
		return nil, nil, ErrClosed
	}
	k, err := table.format.PackKey(key)
	if err != nil {
		return nil, nil, err
	}
	bucket, err := table.bucketFor(table.hash(key))
	if err != nil {
		return nil, nil, err
	}
	return bucket, k, nil
}

// hashRegion hashes a stored key region.
func (table *HashTable[K, V]) hashRegion(region []byte) (uint64, error) {
	key, err := table.format.UnpackKey(region)
	if err != nil {
		return 0, fmt.Errorf("%w: stored key: %v", ErrCorrupt, err)
	}
	return table.hash(key), nil
}

// forEachBucket loads every bucket in file order.
func (table *HashTable[K, V]) forEachBucket(f func(*HashBucket) error) error {
	if table.closed {
		return ErrClosed
	}
	for _, off := range table.GetBucketOffsets() {
		bucket, err := table.buckets.read(off)
		if err != nil {
			return err
		}
		if err = f(bucket); err != nil {
			return err
		}
	}
	return nil
}
