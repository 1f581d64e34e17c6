package codec

import (
	"fmt"

	"dinohash/pkg/config"
)

// For returns the codec for T: the builtin codec for Go primitive types,
// a String(config.DefaultStringMaxBytes) codec for strings, or the
// Serializable adapter when *T implements Serializable and
// encoding.BinaryUnmarshaler. Any other type fails with a *TypeError.
func For[T any]() (Codec[T], error) {
	var zero T
	var c any
	switch any(zero).(type) {
	case bool:
		c = Bool()
	case int8:
		c = Int8()
	case int16:
		c = Int16()
	case int32:
		c = Int32()
	case int64:
		c = Int64()
	case int:
		c = Int()
	case uint8:
		c = Uint8()
	case uint16:
		c = Uint16()
	case uint32:
		c = Uint32()
	case uint64:
		c = Uint64()
	case uint:
		c = Uint()
	case float32:
		c = Float32()
	case float64:
		c = Float64()
	case string:
		c = String(config.DefaultStringMaxBytes)
	case []byte:
		c = Bytes(config.DefaultStringMaxBytes)
	default:
		sc, ok := any(&zero).(selfCoding)
		if !ok {
			return nil, &TypeError{
				Type:   fmt.Sprintf("%T", zero),
				Reason: "not a primitive and does not implement codec.Serializable",
			}
		}
		max := sc.MaxSize()
		if max <= 0 {
			return nil, &TypeError{Type: fmt.Sprintf("%T", zero), Reason: "MaxSize must be positive"}
		}
		return dynamicBinary[T]{name: fmt.Sprintf("%T", zero), max: max}, nil
	}
	return c.(Codec[T]), nil
}

// MustFor is like For but panics on unsupported types.
func MustFor[T any]() Codec[T] {
	c, err := For[T]()
	if err != nil {
		panic(err)
	}
	return c
}
