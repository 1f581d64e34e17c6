// Package testutil holds helpers shared by the index's tests.
package testutil

import (
	"math/rand"
	"path/filepath"
	"testing"

	"dinohash/pkg/config"
)

// Mod vals by this value to prevent hardcoding tests
// + 1 is necessary because rand.Int63n(_) can return 0
var Salt int64 = rand.Int63n(1000) + 1

// TempIndexPath returns a base path for an index inside the test's temp dir.
// The directory and its files are removed when the test ends.
func TempIndexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), config.DBName)
}

// TempIndexFiles returns the directory and bucket file paths for a new index
// inside the test's temp dir.
func TempIndexFiles(t *testing.T) (dirPath, bucketPath string) {
	base := TempIndexPath(t)
	return base + config.DirectorySuffix, base + config.BucketSuffix
}

// KeyValuePair is a pair of key and value int64s
type KeyValuePair struct {
	Key int64
	Val int64
}

// GenerateRandomKeyValuePairs generates n random key-value pairs with unique keys.
// Returns the n pairs generated in a slice and a map that maps the generated keys to the generated values.
func GenerateRandomKeyValuePairs(n int64) ([]KeyValuePair, map[int64]int64) {
	entries := make([]KeyValuePair, n)
	answerKey := make(map[int64]int64, n)
	for i := range n {
		var key int64
		for {
			key = rand.Int63()
			if _, ok := answerKey[key]; !ok {
				break
			}
		}
		val := rand.Int63()
		answerKey[key] = val
		entries[i] = KeyValuePair{Key: key, Val: val}
	}
	return entries, answerKey
}
