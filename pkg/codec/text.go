package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// lengthPrefix is the width of the big-endian length in front of variable-length data.
const lengthPrefix = 2

// MaxTextBytes is the largest bound String and Bytes accept.
const MaxTextBytes = math.MaxUint16

type text struct {
	max int
}

func (c text) builtin() {}

func (c text) MaxSize() int { return lengthPrefix + c.max }

func (c text) encode(typ string, b []byte) ([]byte, error) {
	if err := checkSize(typ, len(b), c.max); err != nil {
		return nil, err
	}
	out := make([]byte, lengthPrefix+len(b))
	binary.BigEndian.PutUint16(out, uint16(len(b)))
	copy(out[lengthPrefix:], b)
	return out, nil
}

func (c text) decode(typ string, data []byte) ([]byte, error) {
	if err := need(typ, data, lengthPrefix); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(data))
	if n > c.max {
		return nil, fmt.Errorf("decoding %s: length %d exceeds limit %d", typ, n, c.max)
	}
	if err := need(typ, data, lengthPrefix+n); err != nil {
		return nil, err
	}
	return data[lengthPrefix : lengthPrefix+n], nil
}

type stringCodec struct{ text }

// String encodes text of up to max bytes (UTF-8) behind a two byte length.
// Longer input fails with an *EncodingError instead of being truncated.
func String(max int) Codec[string] {
	return stringCodec{text{max: clampText(max)}}
}

func (c stringCodec) Encode(v string) ([]byte, error) {
	return c.encode("string", []byte(v))
}

func (c stringCodec) Decode(data []byte) (string, error) {
	b, err := c.decode("string", data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type bytesCodec struct{ text }

// Bytes encodes a byte slice of up to max bytes behind a two byte length.
func Bytes(max int) Codec[[]byte] {
	return bytesCodec{text{max: clampText(max)}}
}

func (c bytesCodec) Encode(v []byte) ([]byte, error) {
	return c.encode("[]byte", v)
}

func (c bytesCodec) Decode(data []byte) ([]byte, error) {
	b, err := c.decode("[]byte", data)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, b...), nil
}

func clampText(max int) int {
	if max < 0 {
		return 0
	}
	if max > MaxTextBytes {
		return MaxTextBytes
	}
	return max
}
