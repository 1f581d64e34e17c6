package codec

import (
	"encoding/binary"
	"math"
)

// fixed is a codec for a type with a natural fixed width.
type fixed[T any] struct {
	name  string
	width int
	put   func(b []byte, v T)
	get   func(b []byte) T
}

func (c fixed[T]) builtin() {}

func (c fixed[T]) MaxSize() int { return c.width }

func (c fixed[T]) Encode(v T) ([]byte, error) {
	b := make([]byte, c.width)
	c.put(b, v)
	return b, nil
}

func (c fixed[T]) Decode(data []byte) (T, error) {
	if err := need(c.name, data, c.width); err != nil {
		var zero T
		return zero, err
	}
	return c.get(data[:c.width]), nil
}

// Bool encodes a bool as a single 0/1 byte.
func Bool() Codec[bool] {
	return fixed[bool]{
		name:  "bool",
		width: 1,
		put: func(b []byte, v bool) {
			if v {
				b[0] = 1
			}
		},
		get: func(b []byte) bool { return b[0] != 0 },
	}
}

// Int8 encodes an int8 in one byte.
func Int8() Codec[int8] {
	return fixed[int8]{
		name:  "int8",
		width: 1,
		put:   func(b []byte, v int8) { b[0] = byte(v) },
		get:   func(b []byte) int8 { return int8(b[0]) },
	}
}

// Int16 encodes an int16 big-endian.
func Int16() Codec[int16] {
	return fixed[int16]{
		name:  "int16",
		width: 2,
		put:   func(b []byte, v int16) { binary.BigEndian.PutUint16(b, uint16(v)) },
		get:   func(b []byte) int16 { return int16(binary.BigEndian.Uint16(b)) },
	}
}

// Int32 encodes an int32 big-endian.
func Int32() Codec[int32] {
	return fixed[int32]{
		name:  "int32",
		width: 4,
		put:   func(b []byte, v int32) { binary.BigEndian.PutUint32(b, uint32(v)) },
		get:   func(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) },
	}
}

// Int64 encodes an int64 big-endian.
func Int64() Codec[int64] {
	return fixed[int64]{
		name:  "int64",
		width: 8,
		put:   func(b []byte, v int64) { binary.BigEndian.PutUint64(b, uint64(v)) },
		get:   func(b []byte) int64 { return int64(binary.BigEndian.Uint64(b)) },
	}
}

// Int encodes an int as 8 bytes big-endian regardless of platform.
func Int() Codec[int] {
	return fixed[int]{
		name:  "int",
		width: 8,
		put:   func(b []byte, v int) { binary.BigEndian.PutUint64(b, uint64(v)) },
		get:   func(b []byte) int { return int(binary.BigEndian.Uint64(b)) },
	}
}

// Uint8 encodes a uint8 in one byte.
func Uint8() Codec[uint8] {
	return fixed[uint8]{
		name:  "uint8",
		width: 1,
		put:   func(b []byte, v uint8) { b[0] = v },
		get:   func(b []byte) uint8 { return b[0] },
	}
}

// Uint16 encodes a uint16 big-endian.
func Uint16() Codec[uint16] {
	return fixed[uint16]{
		name:  "uint16",
		width: 2,
		put:   binary.BigEndian.PutUint16,
		get:   binary.BigEndian.Uint16,
	}
}

// Uint32 encodes a uint32 big-endian.
func Uint32() Codec[uint32] {
	return fixed[uint32]{
		name:  "uint32",
		width: 4,
		put:   binary.BigEndian.PutUint32,
		get:   binary.BigEndian.Uint32,
	}
}

// Uint64 encodes a uint64 big-endian.
func Uint64() Codec[uint64] {
	return fixed[uint64]{
		name:  "uint64",
		width: 8,
		put:   binary.BigEndian.PutUint64,
		get:   binary.BigEndian.Uint64,
	}
}

// Uint encodes a uint as 8 bytes big-endian regardless of platform.
func Uint() Codec[uint] {
	return fixed[uint]{
		name:  "uint",
		width: 8,
		put:   func(b []byte, v uint) { binary.BigEndian.PutUint64(b, uint64(v)) },
		get:   func(b []byte) uint { return uint(binary.BigEndian.Uint64(b)) },
	}
}

// Float32 encodes the IEEE 754 bits of a float32 big-endian.
func Float32() Codec[float32] {
	return fixed[float32]{
		name:  "float32",
		width: 4,
		put:   func(b []byte, v float32) { binary.BigEndian.PutUint32(b, math.Float32bits(v)) },
		get:   func(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) },
	}
}

// Float64 encodes the IEEE 754 bits of a float64 big-endian.
func Float64() Codec[float64] {
	return fixed[float64]{
		name:  "float64",
		width: 8,
		put:   func(b []byte, v float64) { binary.BigEndian.PutUint64(b, math.Float64bits(v)) },
		get:   func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) },
	}
}
