// Package codec converts keys and values to and from bounded byte regions.
//
// Every codec reports the maximum number of bytes an encoded value may take.
// Encode never pads; callers that store values in fixed-width slots pad the
// result with zeros, so Decode must accept input that carries trailing zero
// padding after the encoded bytes.
package codec

import (
	"errors"
	"fmt"
)

// Codec converts values of type T to and from at most MaxSize bytes.
type Codec[T any] interface {
	// MaxSize returns the upper bound on the length of any encoding.
	MaxSize() int
	// Encode returns the encoding of v, of length <= MaxSize.
	Encode(v T) ([]byte, error)
	// Decode is the inverse of Encode. data may be longer than the encoding.
	Decode(data []byte) (T, error)
}

var (
	// ErrEncoding is matched by every *EncodingError.
	ErrEncoding = errors.New("encoding error")

	// ErrUnsupportedType is matched by every *TypeError.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrShortBuffer is returned when there are fewer bytes to decode than the type needs.
	ErrShortBuffer = errors.New("short buffer")
)

// EncodingError reports a value whose encoding would not fit in its codec's bound.
type EncodingError struct {
	Type string
	Size int
	Max  int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s needs %d bytes, limit is %d", e.Type, e.Size, e.Max)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// TypeError reports a type that cannot be sized or encoded.
type TypeError struct {
	Type   string
	Reason string
}

func (e *TypeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported type %s", e.Type)
	}
	return fmt.Sprintf("unsupported type %s: %s", e.Type, e.Reason)
}

func (e *TypeError) Is(target error) bool { return target == ErrUnsupportedType }

// builtin is implemented by the codecs in this package for Go primitive types.
type builtin interface {
	builtin()
}

// IsBuiltin reports whether c is one of this package's primitive codecs.
func IsBuiltin(c any) bool {
	_, ok := c.(builtin)
	return ok
}

// checkSize returns an *EncodingError when size exceeds max.
func checkSize(typ string, size, max int) error {
	if size > max {
		return &EncodingError{Type: typ, Size: size, Max: max}
	}
	return nil
}

// need returns ErrShortBuffer when data holds fewer than n bytes.
func need(typ string, data []byte, n int) error {
	if len(data) < n {
		return fmt.Errorf("decoding %s: %w (have %d, need %d)", typ, ErrShortBuffer, len(data), n)
	}
	return nil
}
