package hash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"dinohash/pkg/config"
	"dinohash/pkg/entry"
	"dinohash/pkg/logger"
)

// bucketStatus is the outcome of inserting into a single bucket.
type bucketStatus int

const (
	bucketInserted bucketStatus = iota
	bucketDuplicate
	bucketFull
)

// HashBucket is one fixed-size block of the bucket file: a local depth byte
// followed by recordsPerBucket record slots.
type HashBucket struct {
	localDepth int            // The **local** depth of the bucket
	offset     int64          // Position of the block in the bucket file, -1 until appended
	records    []entry.Record // Every slot, active or not, in slot order
	store      *bucketFile    // Where slot changes are written, nil for a detached bucket
}

// newHashBucket constructs a detached bucket of n inactive slots.
func newHashBucket(depth int, n int, layout entry.Layout) *HashBucket {
	bucket := &HashBucket{localDepth: depth, offset: -1, records: make([]entry.Record, n)}
	for i := range bucket.records {
		bucket.records[i] = layout.New()
	}
	return bucket
}

// GetDepth returns the bucket's local depth.
func (bucket *HashBucket) GetDepth() int {
	return bucket.localDepth
}

// GetOffset returns the bucket's position in the bucket file.
func (bucket *HashBucket) GetOffset() int64 {
	return bucket.offset
}

// NumActive returns the number of active records.
func (bucket *HashBucket) NumActive() int {
	n := 0
	for _, rec := range bucket.records {
		if rec.IsActive() {
			n++
		}
	}
	return n
}

// Scan returns the slot index of the first active record matching pred.
func (bucket *HashBucket) Scan(pred func(entry.Record) bool) (int, bool) {
	for i, rec := range bucket.records {
		if rec.IsActive() && pred(rec) {
			return i, true
		}
	}
	return -1, false
}

// Insert stores the padded key and value in the first free slot.
// An identical active pair makes it a no-op reporting bucketDuplicate; a
// bucket with no free slot reports bucketFull and is left untouched.
func (bucket *HashBucket) Insert(key, value []byte) (bucketStatus, error) {
	if _, found := bucket.Scan(func(rec entry.Record) bool { return rec.Holds(key, value) }); found {
		return bucketDuplicate, nil
	}
	for i := range bucket.records {
		if bucket.records[i].IsActive() {
			continue
		}
		if err := bucket.records[i].Activate(key, value); err != nil {
			return bucketFull, err
		}
		return bucketInserted, bucket.writeSlot(i)
	}
	return bucketFull, nil
}

// LookupAll returns the value regions of every active record with key, in slot order.
func (bucket *HashBucket) LookupAll(key []byte) [][]byte {
	values := make([][]byte, 0)
	for _, rec := range bucket.records {
		if rec.HasKey(key) {
			values = append(values, rec.Value())
		}
	}
	return values
}

// LookupOne returns the value region of the first active record with key.
func (bucket *HashBucket) LookupOne(key []byte) ([]byte, bool) {
	i, found := bucket.Scan(func(rec entry.Record) bool { return rec.HasKey(key) })
	if !found {
		return nil, false
	}
	return bucket.records[i].Value(), true
}

// Delete deactivates the first record holding exactly key and value.
func (bucket *HashBucket) Delete(key, value []byte) (bool, error) {
	return bucket.deleteFirst(func(rec entry.Record) bool { return rec.Holds(key, value) })
}

// DeleteFirst deactivates the first record with key.
func (bucket *HashBucket) DeleteFirst(key []byte) (bool, error) {
	return bucket.deleteFirst(func(rec entry.Record) bool { return rec.HasKey(key) })
}

// DeleteAll deactivates every record with key.
// NOTE: does not coalesce (ie doesn't merge buckets when they become empty)
func (bucket *HashBucket) DeleteAll(key []byte) (bool, error) {
	deleted := false
	for {
		ok, err := bucket.DeleteFirst(key)
		if err != nil || !ok {
			return deleted, err
		}
		deleted = true
	}
}

func (bucket *HashBucket) deleteFirst(pred func(entry.Record) bool) (bool, error) {
	i, found := bucket.Scan(pred)
	if !found {
		return false, nil
	}
	if err := bucket.records[i].Deactivate(); err != nil {
		return false, err
	}
	return true, bucket.writeSlot(i)
}

// Split increases the local depth and returns an empty detached sibling of
// the new depth. Records are not moved.
func (bucket *HashBucket) Split() *HashBucket {
	bucket.localDepth++
	return newHashBucket(bucket.localDepth, len(bucket.records), bucket.layout())
}

// Reset marks every slot inactive. Nothing is written.
func (bucket *HashBucket) Reset() {
	for i := range bucket.records {
		if bucket.records[i].IsActive() {
			_ = bucket.records[i].Deactivate()
		}
	}
}

// Active returns the active records in slot order.
func (bucket *HashBucket) Active() []entry.Record {
	active := make([]entry.Record, 0, len(bucket.records))
	for _, rec := range bucket.records {
		if rec.IsActive() {
			active = append(active, rec)
		}
	}
	return active
}

// Print writes a string-representation of this bucket and its records to the specified writer.
func (bucket *HashBucket) Print(w io.Writer) {
	fmt.Fprintf(w, "bucket at %d, depth: %d\n", bucket.offset, bucket.localDepth)
	io.WriteString(w, "entries:")
	for _, rec := range bucket.records {
		if rec.IsActive() {
			rec.Print(w)
		}
	}
	io.WriteString(w, "\n")
}

/////////////////////////////////////////////////////////////////////////////
///////////////////// HashBucket Helper Functions ///////////////////////////
/////////////////////////////////////////////////////////////////////////////

func (bucket *HashBucket) layout() entry.Layout {
	rec := bucket.records[0]
	return entry.Layout{KeySize: len(rec.Key()), ValueSize: len(rec.Value())}
}

// writeSlot writes one slot through to the bucket file.
func (bucket *HashBucket) writeSlot(index int) error {
	if bucket.store == nil {
		return nil
	}
	return writeFull(bucket.store.file, bucket.records[index].Marshal(), bucket.store.slotPos(bucket.offset, index))
}

// marshal returns the bucket's block bytes.
func (bucket *HashBucket) marshal() []byte {
	width := bucket.layout().Width()
	buf := make([]byte, SLOTS_OFFSET+int64(width*len(bucket.records)))
	buf[0] = byte(bucket.localDepth)
	for i, rec := range bucket.records {
		rec.EncodeInto(buf, int(SLOTS_OFFSET)+i*width)
	}
	return buf
}

// bucketFile is the file holding every bucket block after a four byte
// records-per-bucket header. Blocks are only ever appended.
type bucketFile struct {
	file             File
	recordsPerBucket int
	layout           entry.Layout
	end              int64 // Offset one past the last complete block
}

// openBucketFile opens or initializes the bucket file. A new file gets n
// records per bucket, or config.DefaultRecordsPerBucket when n is not
// positive. On an existing file the stored records-per-bucket wins over n,
// and a trailing partial block is truncated away.
func openBucketFile(file File, n int, layout entry.Layout, log *logger.Logger) (bf *bucketFile, created bool, err error) {
	size, err := fileSize(file)
	if err != nil {
		return nil, false, err
	}
	if n <= 0 && size == 0 {
		n = config.DefaultRecordsPerBucket
	}
	bf = &bucketFile{file: file, recordsPerBucket: n, layout: layout, end: BUCKET_FILE_HEADER_SIZE}
	if size == 0 {
		if err = bf.checkBlockSize(); err != nil {
			return nil, false, err
		}
		header := make([]byte, BUCKET_FILE_HEADER_SIZE)
		binary.BigEndian.PutUint32(header, uint32(n))
		return bf, true, writeFull(file, header, 0)
	}
	header := make([]byte, BUCKET_FILE_HEADER_SIZE)
	if err = readFull(file, header, 0); err != nil {
		return nil, false, err
	}
	stored := int32(binary.BigEndian.Uint32(header))
	if stored <= 0 {
		return nil, false, corruptf("%s: records per bucket %d", file.Name(), stored)
	}
	if int(stored) != n && n > 0 {
		log.LogMismatch("records_per_bucket", int64(n), int64(stored))
	}
	bf.recordsPerBucket = int(stored)
	if err = bf.checkBlockSize(); err != nil {
		return nil, false, err
	}
	blocks := (size - BUCKET_FILE_HEADER_SIZE) / bf.blockSize()
	bf.end = BUCKET_FILE_HEADER_SIZE + blocks*bf.blockSize()
	if bf.end != size {
		log.Warn("truncating partial bucket at end of file",
			"file", file.Name(),
			"size", size,
			"end", bf.end,
		)
		if err = file.Truncate(bf.end); err != nil {
			return nil, false, &IOError{Op: "truncate", Path: file.Name(), Err: err}
		}
	}
	if err = bf.trimZeroBlocks(log); err != nil {
		return nil, false, err
	}
	return bf, false, nil
}

// trimZeroBlocks drops all-zero blocks from the end of the file. No bucket
// is ever all zeros (local depth is at least 1), so these can only be page
// padding left behind by a crash.
func (bf *bucketFile) trimZeroBlocks(log *logger.Logger) error {
	end := bf.end
	buf := make([]byte, bf.blockSize())
	for end > BUCKET_FILE_HEADER_SIZE {
		if err := readFull(bf.file, buf, end-bf.blockSize()); err != nil {
			return err
		}
		if slices.ContainsFunc(buf, func(b byte) bool { return b != 0 }) {
			break
		}
		end -= bf.blockSize()
	}
	if end == bf.end {
		return nil
	}
	log.Warn("truncating zero padding at end of file",
		"file", bf.file.Name(),
		"blocks", (bf.end-end)/bf.blockSize(),
		"end", end,
	)
	if err := bf.file.Truncate(end); err != nil {
		return &IOError{Op: "truncate", Path: bf.file.Name(), Err: err}
	}
	bf.end = end
	return nil
}

// blockSize is the byte width of one bucket block.
func (bf *bucketFile) blockSize() int64 {
	return SLOTS_OFFSET + int64(bf.recordsPerBucket)*int64(bf.layout.Width())
}

func (bf *bucketFile) checkBlockSize() error {
	if bf.recordsPerBucket <= 0 || bf.blockSize() > math.MaxInt32 {
		return fmt.Errorf("%d records of %d bytes do not make a valid bucket", bf.recordsPerBucket, bf.layout.Width())
	}
	return nil
}

// numBuckets returns the number of blocks in the file.
func (bf *bucketFile) numBuckets() int64 {
	return (bf.end - BUCKET_FILE_HEADER_SIZE) / bf.blockSize()
}

// isBucket reports whether offset is the start of a block in the file.
func (bf *bucketFile) isBucket(offset int64) bool {
	return offset >= BUCKET_FILE_HEADER_SIZE && offset < bf.end &&
		(offset-BUCKET_FILE_HEADER_SIZE)%bf.blockSize() == 0
}

// bucketNum returns the position of the block at offset among all blocks.
func (bf *bucketFile) bucketNum(offset int64) int64 {
	return (offset - BUCKET_FILE_HEADER_SIZE) / bf.blockSize()
}

// slotPos gets the byte-position of slot index in the block at offset.
func (bf *bucketFile) slotPos(offset int64, index int) int64 {
	return offset + SLOTS_OFFSET + int64(index)*int64(bf.layout.Width())
}

// newBucket returns an empty attached-to-nothing bucket for this file.
func (bf *bucketFile) newBucket(depth int) *HashBucket {
	return newHashBucket(depth, bf.recordsPerBucket, bf.layout)
}

// append writes bucket as a new block at the end of the file and attaches it.
func (bf *bucketFile) append(bucket *HashBucket) error {
	offset := bf.end
	if err := writeFull(bf.file, bucket.marshal(), offset); err != nil {
		return err
	}
	bf.end += bf.blockSize()
	bucket.offset = offset
	bucket.store = bf
	return nil
}

// write rewrites the whole block of an attached bucket.
func (bf *bucketFile) write(bucket *HashBucket) error {
	return writeFull(bf.file, bucket.marshal(), bucket.offset)
}

// read loads the bucket at offset into a fresh buffer.
func (bf *bucketFile) read(offset int64) (*HashBucket, error) {
	if !bf.isBucket(offset) {
		return nil, corruptf("%s: no bucket at offset %d", bf.file.Name(), offset)
	}
	buf := make([]byte, bf.blockSize())
	if err := readFull(bf.file, buf, offset); err != nil {
		return nil, err
	}
	bucket := &HashBucket{
		localDepth: int(buf[0]),
		offset:     offset,
		records:    make([]entry.Record, bf.recordsPerBucket),
		store:      bf,
	}
	width := bf.layout.Width()
	for i := range bucket.records {
		rec, err := bf.layout.DecodeFrom(buf, int(SLOTS_OFFSET)+i*width)
		if errors.Is(err, entry.ErrBadTag) {
			return nil, corruptf("%s: bucket %d slot %d: %v", bf.file.Name(), offset, i, err)
		}
		if err != nil {
			return nil, err
		}
		bucket.records[i] = rec
	}
	return bucket, nil
}
