package entry

import (
	"fmt"

	"dinohash/pkg/codec"
)

// Format binds a slot layout to the codecs of an index's key and value types.
type Format[K, V any] struct {
	Keys   codec.Codec[K]
	Values codec.Codec[V]
}

// NewFormat returns the format for the given codecs. Region widths come
// from the codecs' MaxSize and are fixed for the index's lifetime.
func NewFormat[K, V any](keys codec.Codec[K], values codec.Codec[V]) (Format[K, V], error) {
	if keys == nil || values == nil {
		return Format[K, V]{}, &codec.TypeError{Type: fmt.Sprintf("%T/%T", *new(K), *new(V)), Reason: "nil codec"}
	}
	if keys.MaxSize() <= 0 || values.MaxSize() <= 0 {
		return Format[K, V]{}, &codec.TypeError{
			Type:   fmt.Sprintf("%T/%T", *new(K), *new(V)),
			Reason: fmt.Sprintf("codec sizes must be positive (key %d, value %d)", keys.MaxSize(), values.MaxSize()),
		}
	}
	return Format[K, V]{Keys: keys, Values: values}, nil
}

// Layout returns the slot layout.
func (f Format[K, V]) Layout() Layout {
	return Layout{KeySize: f.Keys.MaxSize(), ValueSize: f.Values.MaxSize()}
}

// PackKey returns key encoded and zero-padded to the key region width.
func (f Format[K, V]) PackKey(key K) ([]byte, error) {
	b, err := f.Keys.Encode(key)
	if err != nil {
		return nil, err
	}
	return pad(b, f.Keys.MaxSize())
}

// PackValue returns value encoded and zero-padded to the value region width.
func (f Format[K, V]) PackValue(value V) ([]byte, error) {
	b, err := f.Values.Encode(value)
	if err != nil {
		return nil, err
	}
	return pad(b, f.Values.MaxSize())
}

// Pack encodes both halves of a pair.
func (f Format[K, V]) Pack(key K, value V) (k []byte, v []byte, err error) {
	if k, err = f.PackKey(key); err != nil {
		return nil, nil, err
	}
	if v, err = f.PackValue(value); err != nil {
		return nil, nil, err
	}
	return k, v, nil
}

// UnpackKey decodes a key region.
func (f Format[K, V]) UnpackKey(region []byte) (K, error) {
	return f.Keys.Decode(region)
}

// UnpackValue decodes a value region.
func (f Format[K, V]) UnpackValue(region []byte) (V, error) {
	return f.Values.Decode(region)
}

// Unpack decodes the pair held by a record.
func (f Format[K, V]) Unpack(rec Record) (key K, value V, err error) {
	if key, err = f.UnpackKey(rec.key); err != nil {
		return key, value, err
	}
	value, err = f.UnpackValue(rec.value)
	return key, value, err
}

// pad copies b into a zeroed region of width bytes.
func pad(b []byte, width int) ([]byte, error) {
	if len(b) > width {
		return nil, &codec.EncodingError{Type: "region", Size: len(b), Max: width}
	}
	out := make([]byte, width)
	copy(out, b)
	return out, nil
}
