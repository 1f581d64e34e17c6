package hash

import (
	"fmt"

	"dinohash/pkg/codec"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// HashFunc maps a key to the 64-bit hash the directory routes on.
type HashFunc[K any] func(K) uint64

// Hasher hashes an encoded key.
type Hasher func(b []byte) uint64

// XxHasher returns the xxHash hash of the given bytes.
func XxHasher(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// MurmurHasher returns the MurmurHash3 hash of the given bytes.
func MurmurHasher(b []byte) uint64 {
	return murmur3.Sum64(b)
}

// CodecHash hashes a key by running hasher over its encoding. Keys that
// fail to encode hash as the empty input; the engine never routes such keys.
func CodecHash[K any](keys codec.Codec[K], hasher Hasher) HashFunc[K] {
	return func(key K) uint64 {
		b, err := keys.Encode(key)
		if err != nil {
			return hasher(nil)
		}
		return hasher(b)
	}
}

// defaultHash returns CodecHash for the builtin key codecs. Other key types
// have no canonical encoding to hash and must bring their own HashFunc.
func defaultHash[K any](keys codec.Codec[K], hasher Hasher) (HashFunc[K], error) {
	if !codec.IsBuiltin(keys) {
		return nil, &codec.TypeError{
			Type:   fmt.Sprintf("%T", *new(K)),
			Reason: "no default hash function, pass one explicitly",
		}
	}
	return CodecHash(keys, hasher), nil
}
