package hash

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"

	"dinohash/internal/testutil"
	"dinohash/pkg/config"
	"dinohash/pkg/entry"
	"dinohash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayout = entry.Layout{KeySize: 2, ValueSize: 1}

func TestBucket(t *testing.T) {
	t.Run("Insert", testBucketInsert)
	t.Run("Duplicate", testBucketDuplicate)
	t.Run("Full", testBucketFull)
	t.Run("Lookup", testBucketLookup)
	t.Run("Delete", testBucketDelete)
	t.Run("SlotReuse", testBucketSlotReuse)
	t.Run("Split", testBucketSplit)
}

func testBucketInsert(t *testing.T) {
	bucket := newHashBucket(1, 3, testLayout)
	status, err := bucket.Insert([]byte("a"), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, bucketInserted, status)
	assert.Equal(t, 1, bucket.NumActive())
	// Regions are padded to the layout.
	assert.Equal(t, []byte{'a', 0}, bucket.records[0].Key())
}

func testBucketDuplicate(t *testing.T) {
	bucket := newHashBucket(1, 3, testLayout)
	_, err := bucket.Insert([]byte("a"), []byte{1})
	require.NoError(t, err)
	status, err := bucket.Insert([]byte("a\x00"), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, bucketDuplicate, status)
	assert.Equal(t, 1, bucket.NumActive())
}

// A full bucket still reports duplicates, and is left untouched otherwise.
func testBucketFull(t *testing.T) {
	bucket := newHashBucket(1, 2, testLayout)
	for i := byte(0); i < 2; i++ {
		status, err := bucket.Insert([]byte{'k', 0}, []byte{i})
		require.NoError(t, err)
		require.Equal(t, bucketInserted, status)
	}
	before := bucket.marshal()
	status, err := bucket.Insert([]byte{'k', 0}, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, bucketFull, status)
	assert.Equal(t, before, bucket.marshal())

	status, err = bucket.Insert([]byte{'k', 0}, []byte{1})
	require.NoError(t, err)
	assert.Equal(t, bucketDuplicate, status)
}

func testBucketLookup(t *testing.T) {
	bucket := newHashBucket(1, 4, testLayout)
	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"a", "3"}} {
		_, err := bucket.Insert([]byte(kv[0]), []byte(kv[1]))
		require.NoError(t, err)
	}
	key := []byte{'a', 0}
	assert.Equal(t, [][]byte{[]byte("1"), []byte("3")}, bucket.LookupAll(key))
	value, found := bucket.LookupOne(key)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), value)
	_, found = bucket.LookupOne([]byte{'z', 0})
	assert.False(t, found)
	assert.Empty(t, bucket.LookupAll([]byte{'z', 0}))
}

func testBucketDelete(t *testing.T) {
	bucket := newHashBucket(1, 4, testLayout)
	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"a", "3"}, {"a", "4"}} {
		_, err := bucket.Insert([]byte(kv[0]), []byte(kv[1]))
		require.NoError(t, err)
	}
	key := []byte{'a', 0}

	ok, err := bucket.Delete(key, []byte("3"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = bucket.Delete(key, []byte("3"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = bucket.DeleteFirst(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, [][]byte{[]byte("4")}, bucket.LookupAll(key))

	ok, err = bucket.DeleteAll(key)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = bucket.DeleteAll(key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, bucket.NumActive())
}

func testBucketSlotReuse(t *testing.T) {
	bucket := newHashBucket(1, 2, testLayout)
	for _, v := range []string{"1", "2"} {
		_, err := bucket.Insert([]byte("a"), []byte(v))
		require.NoError(t, err)
	}
	_, err := bucket.DeleteFirst([]byte{'a', 0})
	require.NoError(t, err)
	status, err := bucket.Insert([]byte("a"), []byte("3"))
	require.NoError(t, err)
	assert.Equal(t, bucketInserted, status)
	assert.Equal(t, [][]byte{[]byte("3"), []byte("2")}, bucket.LookupAll([]byte{'a', 0}))
}

func testBucketSplit(t *testing.T) {
	bucket := newHashBucket(2, 3, testLayout)
	_, err := bucket.Insert([]byte("a"), []byte("1"))
	require.NoError(t, err)
	sibling := bucket.Split()
	assert.Equal(t, 3, bucket.GetDepth())
	assert.Equal(t, 3, sibling.GetDepth())
	assert.Equal(t, 0, sibling.NumActive())
	assert.Len(t, sibling.records, 3)
	assert.Equal(t, 1, bucket.NumActive())
	assert.Len(t, bucket.Active(), 1)

	bucket.Reset()
	assert.Equal(t, 0, bucket.NumActive())
}

func TestBucketFile(t *testing.T) {
	t.Run("Create", testBucketFileCreate)
	t.Run("DefaultRecordsPerBucket", testBucketFileDefault)
	t.Run("AppendRead", testBucketFileAppendRead)
	t.Run("WriteThrough", testBucketFileWriteThrough)
	t.Run("StoredRecordsPerBucketWins", testBucketFileStoredWins)
	t.Run("TruncatePartialBucket", testBucketFileTruncate)
	t.Run("TrimZeroPadding", testBucketFileTrimZeroPadding)
	t.Run("Corrupt", testBucketFileCorrupt)
}

func testBucketFileCreate(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	bf, created, err := openBucketFile(file, 3, testLayout, logger.Noop())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []byte{0, 0, 0, 3}, file.Bytes())
	assert.Equal(t, int64(1+3*4), bf.blockSize())
	assert.Equal(t, int64(0), bf.numBuckets())
}

func testBucketFileDefault(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	bf, _, err := openBucketFile(file, 0, testLayout, logger.Noop())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRecordsPerBucket, bf.recordsPerBucket)
	assert.Equal(t, uint32(config.DefaultRecordsPerBucket), binary.BigEndian.Uint32(file.Bytes()))
}

func testBucketFileAppendRead(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	bf, _, err := openBucketFile(file, 2, testLayout, logger.Noop())
	require.NoError(t, err)

	first := bf.newBucket(1)
	require.NoError(t, bf.append(first))
	second := bf.newBucket(2)
	require.NoError(t, bf.append(second))
	assert.Equal(t, FIRST_BUCKET_OFFSET, first.GetOffset())
	assert.Equal(t, FIRST_BUCKET_OFFSET+bf.blockSize(), second.GetOffset())
	assert.Equal(t, int64(2), bf.numBuckets())

	// An empty block is its depth byte followed by inactive slots.
	want := append([]byte{0, 0, 0, 2}, 1, '*', 0, 0, 0, '*', 0, 0, 0)
	want = append(want, 2, '*', 0, 0, 0, '*', 0, 0, 0)
	assert.Equal(t, want, file.Bytes())

	loaded, err := bf.read(second.GetOffset())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.GetDepth())
	assert.Equal(t, 0, loaded.NumActive())

	_, err = bf.read(FIRST_BUCKET_OFFSET + 1)
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = bf.read(FIRST_BUCKET_OFFSET + 2*bf.blockSize())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func testBucketFileWriteThrough(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	bf, _, err := openBucketFile(file, 2, testLayout, logger.Noop())
	require.NoError(t, err)
	bucket := bf.newBucket(1)
	require.NoError(t, bf.append(bucket))

	_, err = bucket.Insert([]byte("a"), []byte("1"))
	require.NoError(t, err)
	slot := file.Bytes()[bf.slotPos(bucket.offset, 0):bf.slotPos(bucket.offset, 1)]
	assert.Equal(t, []byte{' ', 'a', 0, '1'}, slot)

	// Deleting only flips the tag.
	_, err = bucket.DeleteFirst([]byte{'a', 0})
	require.NoError(t, err)
	slot = file.Bytes()[bf.slotPos(bucket.offset, 0):bf.slotPos(bucket.offset, 1)]
	assert.Equal(t, []byte{'*', 'a', 0, '1'}, slot)

	_, err = bucket.Insert([]byte("b"), []byte("2"))
	require.NoError(t, err)
	loaded, err := bf.read(bucket.offset)
	require.NoError(t, err)
	assert.Equal(t, bucket.marshal(), loaded.marshal())
}

func testBucketFileStoredWins(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	_, _, err := openBucketFile(file, 2, testLayout, logger.Noop())
	require.NoError(t, err)

	var buf bytes.Buffer
	bf, created, err := openBucketFile(file, 5, testLayout, logger.NewWriterLogger(&buf, slog.LevelDebug))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, bf.recordsPerBucket)
	assert.Contains(t, buf.String(), "records_per_bucket")
}

func testBucketFileTruncate(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	bf, _, err := openBucketFile(file, 2, testLayout, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, bf.append(bf.newBucket(1)))
	whole := file.Bytes()
	_, err = file.WriteAt([]byte{1, '*', 0}, int64(len(whole)))
	require.NoError(t, err)

	var buf bytes.Buffer
	bf, _, err = openBucketFile(file, 2, testLayout, logger.NewWriterLogger(&buf, slog.LevelDebug))
	require.NoError(t, err)
	assert.Equal(t, int64(1), bf.numBuckets())
	assert.Equal(t, whole, file.Bytes())
	assert.Contains(t, buf.String(), "truncating partial bucket")
}

// A file padded with zeros to a whole page reopens with only its real
// buckets.
func testBucketFileTrimZeroPadding(t *testing.T) {
	file := testutil.NewMemFile("bkt")
	bf, _, err := openBucketFile(file, 2, testLayout, logger.Noop())
	require.NoError(t, err)
	first := bf.newBucket(1)
	require.NoError(t, bf.append(first))
	_, err = first.Insert([]byte("a\x00"), []byte("1"))
	require.NoError(t, err)
	whole := bytes.Clone(file.Bytes())
	_, err = file.WriteAt(make([]byte, 4096-len(whole)), int64(len(whole)))
	require.NoError(t, err)

	var buf bytes.Buffer
	bf, _, err = openBucketFile(file, 2, testLayout, logger.NewWriterLogger(&buf, slog.LevelDebug))
	require.NoError(t, err)
	assert.Equal(t, int64(1), bf.numBuckets())
	assert.Equal(t, whole, file.Bytes())
	assert.Contains(t, buf.String(), "truncating zero padding")

	bucket, err := bf.read(FIRST_BUCKET_OFFSET)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("1")}, bucket.LookupAll([]byte("a\x00")))
}

func testBucketFileCorrupt(t *testing.T) {
	t.Run("ZeroHeader", func(t *testing.T) {
		_, _, err := openBucketFile(testutil.NewMemFileWith("bkt", []byte{0, 0, 0, 0}), 2, testLayout, logger.Noop())
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("ShortHeader", func(t *testing.T) {
		_, _, err := openBucketFile(testutil.NewMemFileWith("bkt", []byte{0, 0}), 2, testLayout, logger.Noop())
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("BadTag", func(t *testing.T) {
		data := []byte{0, 0, 0, 1, 1, '?', 0, 0, 0}
		bf, _, err := openBucketFile(testutil.NewMemFileWith("bkt", data), 2, testLayout, logger.Noop())
		require.NoError(t, err)
		_, err = bf.read(FIRST_BUCKET_OFFSET)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("ReadFailure", func(t *testing.T) {
		file := testutil.NewFaultyFile(testutil.NewMemFile("bkt"))
		bf, _, err := openBucketFile(file, 2, testLayout, logger.Noop())
		require.NoError(t, err)
		require.NoError(t, bf.append(bf.newBucket(1)))
		file.FailReads = true
		_, err = bf.read(FIRST_BUCKET_OFFSET)
		assert.ErrorIs(t, err, ErrIO)
	})
}
