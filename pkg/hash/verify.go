package hash

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Verify checks the table's structure:
//   - every directory entry points at a bucket, and every bucket is pointed at
//   - every bucket's local depth d is between 1 and the global depth g, and
//     exactly 2^(g-d+1) entries point at it
//   - every active record routes to the bucket holding it
//
// A violation is returned as an error wrapping ErrCorrupt.
func (table *HashTable[K, V]) Verify() error {
	if table.closed {
		return ErrClosed
	}
	global := table.dir.GetDepth()
	referenced := bitset.New(uint(table.buckets.numBuckets()))
	refs := make(map[int64]int)
	for i, p := range table.dir.pointers {
		if !table.buckets.isBucket(p) {
			return corruptf("entry %d points at %d, not a bucket", i, p)
		}
		referenced.Set(uint(table.buckets.bucketNum(p)))
		refs[p]++
	}
	if n := referenced.Count(); n != uint(table.buckets.numBuckets()) {
		return corruptf("%d of %d buckets are unreachable", uint(table.buckets.numBuckets())-n, table.buckets.numBuckets())
	}
	return table.forEachBucket(func(bucket *HashBucket) error {
		local := bucket.GetDepth()
		if local < INITIAL_LOCAL_DEPTH || local > global {
			return corruptf("bucket %d has local depth %d, global depth is %d", bucket.offset, local, global)
		}
		if want := 1 << (global - local + 1); refs[bucket.offset] != want {
			return corruptf("bucket %d of depth %d has %d entries, want %d", bucket.offset, local, refs[bucket.offset], want)
		}
		for _, rec := range bucket.Active() {
			h, err := table.hashRegion(rec.Key())
			if err != nil {
				return err
			}
			if p := table.dir.GetPointer(table.dir.Route(h)); p != bucket.offset {
				return corruptf("record %q in bucket %d routes to bucket %d", rec.Key(), bucket.offset, p)
			}
		}
		return nil
	})
}

// IsHash reports whether the table passes Verify. Errors other than
// structural ones are returned.
func IsHash[K, V any](table *HashTable[K, V]) (bool, error) {
	err := table.Verify()
	if errors.Is(err, ErrCorrupt) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	return true, nil
}
