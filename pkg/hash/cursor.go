package hash

import (
	"errors"

	"dinohash/pkg/cursor"
)

// HashCursor walks the active records of a table in bucket file order.
type HashCursor[K, V any] struct {
	table     *HashTable[K, V]
	offsets   []int64     // Bucket offsets snapshotted when the cursor was opened
	bucketnum int         // Position in offsets of curBucket
	cellnum   int         // Slot of curBucket the cursor is on
	curBucket *HashBucket // Loaded copy of the current bucket
	err       error       // First read failure, reported by GetEntry
}

// CursorAtStart returns a cursor to the first active record in the table.
func (table *HashTable[K, V]) CursorAtStart() (cursor.Cursor[K, V], error) {
	if table.closed {
		return nil, ErrClosed
	}
	c := &HashCursor[K, V]{table: table, offsets: table.GetBucketOffsets(), cellnum: -1}
	if c.curBucket, c.err = table.buckets.read(c.offsets[0]); c.err != nil {
		return nil, c.err
	}
	// Move onto the first active record.
	if c.Next() {
		if c.err != nil {
			return nil, c.err
		}
		return nil, ErrEmptyIndex
	}
	return c, nil
}

// Next moves the cursor ahead by one record.
// Returns true if we reach the end of our index.
func (c *HashCursor[K, V]) Next() bool {
	if c.err != nil {
		return true
	}
	for {
		for c.cellnum++; c.cellnum < len(c.curBucket.records); c.cellnum++ {
			if c.curBucket.records[c.cellnum].IsActive() {
				return false
			}
		}
		if c.bucketnum+1 >= len(c.offsets) {
			return true
		}
		c.bucketnum++
		c.cellnum = -1
		if c.curBucket, c.err = c.table.buckets.read(c.offsets[c.bucketnum]); c.err != nil {
			return true
		}
	}
}

// GetEntry returns the entry currently pointed to by the cursor.
func (c *HashCursor[K, V]) GetEntry() (key K, value V, err error) {
	if c.err != nil {
		return key, value, c.err
	}
	if c.cellnum < 0 || c.cellnum >= len(c.curBucket.records) || !c.curBucket.records[c.cellnum].IsActive() {
		return key, value, errors.New("getEntry: cursor is not pointing at a valid entry")
	}
	return c.table.format.Unpack(c.curBucket.records[c.cellnum])
}

// Close is called when we no longer need to use the cursor anymore.
func (c *HashCursor[K, V]) Close() {
	c.curBucket = nil
	c.err = errors.New("cursor is closed")
}
