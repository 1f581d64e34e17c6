package codec_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"dinohash/pkg/codec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// student nests a bounded string and an int32 inside its own encoding.
type student struct {
	ID   int32
	Name string
	GPA  float64
}

var (
	studentID   = codec.Int32()
	studentName = codec.String(30)
	studentGPA  = codec.Float64()
)

func (s student) MaxSize() int {
	return studentID.MaxSize() + studentName.MaxSize() + studentGPA.MaxSize()
}

func (s student) MarshalBinary() ([]byte, error) {
	id, _ := studentID.Encode(s.ID)
	name, err := studentName.Encode(s.Name)
	if err != nil {
		return nil, err
	}
	gpa, _ := studentGPA.Encode(s.GPA)
	out := append(id, gpa...)
	return append(out, name...), nil
}

func (s *student) UnmarshalBinary(data []byte) (err error) {
	if s.ID, err = studentID.Decode(data); err != nil {
		return err
	}
	data = data[studentID.MaxSize():]
	if s.GPA, err = studentGPA.Decode(data); err != nil {
		return err
	}
	s.Name, err = studentName.Decode(data[studentGPA.MaxSize():])
	return err
}

// roundTrip encodes v, pads it to the codec's bound like a record slot does, and decodes it back.
func roundTrip[T any](t *testing.T, c codec.Codec[T], v T) T {
	t.Helper()
	b, err := c.Encode(v)
	require.NoError(t, err)
	require.LessOrEqual(t, len(b), c.MaxSize())
	padded := make([]byte, c.MaxSize())
	copy(padded, b)
	out, err := c.Decode(padded)
	require.NoError(t, err)
	return out
}

func TestCodec(t *testing.T) {
	t.Run("Primitives", testPrimitives)
	t.Run("Widths", testWidths)
	t.Run("StringBound", testStringBound)
	t.Run("Bytes", testBytes)
	t.Run("Serializable", testSerializable)
	t.Run("For", testFor)
	t.Run("Unsupported", testUnsupported)
	t.Run("ShortBuffer", testShortBuffer)
}

func testPrimitives(t *testing.T) {
	for _, v := range []int64{0, 1, -1, math.MaxInt64, math.MinInt64} {
		assert.Equal(t, v, roundTrip(t, codec.Int64(), v))
	}
	for _, v := range []int32{0, 7, -7, math.MaxInt32, math.MinInt32} {
		assert.Equal(t, v, roundTrip(t, codec.Int32(), v))
	}
	for _, v := range []int16{0, -300, math.MaxInt16} {
		assert.Equal(t, v, roundTrip(t, codec.Int16(), v))
	}
	for _, v := range []int8{0, -128, 127} {
		assert.Equal(t, v, roundTrip(t, codec.Int8(), v))
	}
	for _, v := range []int{0, -42, math.MaxInt} {
		assert.Equal(t, v, roundTrip(t, codec.Int(), v))
	}
	for _, v := range []uint64{0, math.MaxUint64} {
		assert.Equal(t, v, roundTrip(t, codec.Uint64(), v))
	}
	for _, v := range []uint32{0, math.MaxUint32} {
		assert.Equal(t, v, roundTrip(t, codec.Uint32(), v))
	}
	for _, v := range []uint16{0, math.MaxUint16} {
		assert.Equal(t, v, roundTrip(t, codec.Uint16(), v))
	}
	assert.Equal(t, uint8(200), roundTrip(t, codec.Uint8(), uint8(200)))
	assert.Equal(t, uint(99), roundTrip(t, codec.Uint(), uint(99)))
	for _, v := range []float64{0, -1.5, math.Pi, math.Inf(1), math.SmallestNonzeroFloat64} {
		assert.Equal(t, v, roundTrip(t, codec.Float64(), v))
	}
	assert.Equal(t, float32(2.25), roundTrip(t, codec.Float32(), float32(2.25)))
	assert.True(t, roundTrip(t, codec.Bool(), true))
	assert.False(t, roundTrip(t, codec.Bool(), false))
	for _, v := range []string{"", "A", "héllo wörld", strings.Repeat("x", 300)} {
		assert.Equal(t, v, roundTrip(t, codec.String(300), v))
	}
}

func testWidths(t *testing.T) {
	assert.Equal(t, 1, codec.Bool().MaxSize())
	assert.Equal(t, 1, codec.Int8().MaxSize())
	assert.Equal(t, 2, codec.Int16().MaxSize())
	assert.Equal(t, 4, codec.Int32().MaxSize())
	assert.Equal(t, 8, codec.Int64().MaxSize())
	assert.Equal(t, 4, codec.Float32().MaxSize())
	assert.Equal(t, 8, codec.Float64().MaxSize())
	assert.Equal(t, 12, codec.String(10).MaxSize())
}

func testStringBound(t *testing.T) {
	c := codec.String(4)
	_, err := c.Encode("abcd")
	require.NoError(t, err)

	_, err = c.Encode("abcde")
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrEncoding))
	var encErr *codec.EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 5, encErr.Size)
	assert.Equal(t, 4, encErr.Max)

	// Multi-byte runes count by their encoded size.
	_, err = c.Encode("ééé")
	assert.ErrorIs(t, err, codec.ErrEncoding)
}

func testBytes(t *testing.T) {
	c := codec.Bytes(8)
	in := []byte{0, 1, 0, 2}
	assert.Equal(t, in, roundTrip(t, c, in))
	assert.Equal(t, []byte{}, roundTrip(t, c, []byte{}))
	_, err := c.Encode(make([]byte, 9))
	assert.ErrorIs(t, err, codec.ErrEncoding)
}

func testSerializable(t *testing.T) {
	c := codec.Binary[student]()
	assert.Equal(t, 4+32+8, c.MaxSize())
	in := student{ID: 12, Name: "Ada Lovelace", GPA: 3.9}
	assert.Equal(t, in, roundTrip(t, c, in))

	_, err := c.Encode(student{Name: strings.Repeat("n", 31)})
	assert.ErrorIs(t, err, codec.ErrEncoding)
	assert.False(t, codec.IsBuiltin(c))
}

func testFor(t *testing.T) {
	s, err := codec.For[string]()
	require.NoError(t, err)
	assert.True(t, codec.IsBuiltin(s))
	assert.Equal(t, "abc", roundTrip(t, s, "abc"))

	i, err := codec.For[int64]()
	require.NoError(t, err)
	assert.Equal(t, int64(-9), roundTrip(t, i, int64(-9)))

	f, err := codec.For[float32]()
	require.NoError(t, err)
	assert.Equal(t, 4, f.MaxSize())

	st, err := codec.For[student]()
	require.NoError(t, err)
	assert.False(t, codec.IsBuiltin(st))
	in := student{ID: 1, Name: "Grace", GPA: 4}
	assert.Equal(t, in, roundTrip(t, st, in))
}

func testUnsupported(t *testing.T) {
	type opaque struct{ ch chan int }
	_, err := codec.For[opaque]()
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrUnsupportedType)
	var typeErr *codec.TypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Contains(t, typeErr.Type, "opaque")

	_, err = codec.For[map[string]int]()
	assert.ErrorIs(t, err, codec.ErrUnsupportedType)

	assert.Panics(t, func() { codec.MustFor[complex128]() })
}

func testShortBuffer(t *testing.T) {
	_, err := codec.Int64().Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, codec.ErrShortBuffer)
	_, err = codec.String(10).Decode([]byte{0, 5, 'a'})
	assert.ErrorIs(t, err, codec.ErrShortBuffer)
}
