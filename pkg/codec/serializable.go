package codec

import (
	"encoding"
	"fmt"
)

// Serializable is implemented by user types that size and encode themselves.
// A type that nests other serializable values declares a MaxSize covering
// the sum of their bounds and calls their codecs from MarshalBinary.
type Serializable interface {
	MaxSize() int
	encoding.BinaryMarshaler
}

// SerializablePtr is satisfied by *T when T is Serializable and *T can
// decode itself.
type SerializablePtr[T any] interface {
	*T
	Serializable
	encoding.BinaryUnmarshaler
}

type binaryCodec[T any, PT SerializablePtr[T]] struct {
	name string
	max  int
}

// Binary returns a codec for a user type through its own MaxSize,
// MarshalBinary and UnmarshalBinary methods.
func Binary[T any, PT SerializablePtr[T]]() Codec[T] {
	var zero T
	return binaryCodec[T, PT]{
		name: fmt.Sprintf("%T", zero),
		max:  PT(&zero).MaxSize(),
	}
}

func (c binaryCodec[T, PT]) MaxSize() int { return c.max }

func (c binaryCodec[T, PT]) Encode(v T) ([]byte, error) {
	b, err := PT(&v).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.name, err)
	}
	if err := checkSize(c.name, len(b), c.max); err != nil {
		return nil, err
	}
	return b, nil
}

func (c binaryCodec[T, PT]) Decode(data []byte) (T, error) {
	var v T
	if len(data) > c.max {
		data = data[:c.max]
	}
	if err := PT(&v).UnmarshalBinary(data); err != nil {
		return v, fmt.Errorf("decoding %s: %w", c.name, err)
	}
	return v, nil
}

// dynamicBinary is the codec For hands out when *T is serializable but T
// was not known to be at compile time.
type dynamicBinary[T any] struct {
	name string
	max  int
}

type selfCoding interface {
	Serializable
	encoding.BinaryUnmarshaler
}

func (c dynamicBinary[T]) MaxSize() int { return c.max }

func (c dynamicBinary[T]) Encode(v T) ([]byte, error) {
	b, err := any(&v).(selfCoding).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.name, err)
	}
	if err := checkSize(c.name, len(b), c.max); err != nil {
		return nil, err
	}
	return b, nil
}

func (c dynamicBinary[T]) Decode(data []byte) (T, error) {
	var v T
	if len(data) > c.max {
		data = data[:c.max]
	}
	if err := any(&v).(selfCoding).UnmarshalBinary(data); err != nil {
		return v, fmt.Errorf("decoding %s: %w", c.name, err)
	}
	return v, nil
}
