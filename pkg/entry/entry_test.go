package entry_test

import (
	"testing"

	"dinohash/pkg/codec"
	"dinohash/pkg/entry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	t.Run("Width", testWidth)
	t.Run("StateMachine", testStateMachine)
	t.Run("EncodeDecode", testEncodeDecode)
	t.Run("DeactivateKeepsBytes", testDeactivateKeepsBytes)
	t.Run("BadTag", testBadTag)
	t.Run("Format", testFormat)
}

func testWidth(t *testing.T) {
	layout := entry.Layout{KeySize: 10, ValueSize: 8}
	assert.Equal(t, 19, layout.Width())
	rec := layout.New()
	assert.Equal(t, entry.Inactive, rec.Tag())
	assert.Len(t, rec.Marshal(), 19)
}

func testStateMachine(t *testing.T) {
	rec := entry.Layout{KeySize: 4, ValueSize: 4}.New()
	assert.ErrorIs(t, rec.Deactivate(), entry.ErrRecordInactive)

	require.NoError(t, rec.Activate([]byte("ab"), []byte{1}))
	assert.True(t, rec.IsActive())
	assert.Equal(t, []byte{'a', 'b', 0, 0}, rec.Key())
	assert.Equal(t, []byte{1, 0, 0, 0}, rec.Value())
	assert.ErrorIs(t, rec.Activate([]byte("cd"), []byte{2}), entry.ErrRecordActive)

	require.NoError(t, rec.Deactivate())
	assert.False(t, rec.IsActive())

	// Reactivation overwrites the stale bytes and re-pads them.
	require.NoError(t, rec.Activate([]byte("z"), []byte{9, 9}))
	assert.Equal(t, []byte{'z', 0, 0, 0}, rec.Key())
	assert.Equal(t, []byte{9, 9, 0, 0}, rec.Value())

	other := entry.Layout{KeySize: 1, ValueSize: 1}.New()
	assert.Error(t, other.Activate([]byte("too long"), nil))
}

func testEncodeDecode(t *testing.T) {
	layout := entry.Layout{KeySize: 3, ValueSize: 2}
	rec := layout.New()
	require.NoError(t, rec.Activate([]byte("key"), []byte("v")))

	// Encode into the middle of a larger buffer, as a bucket does.
	buf := make([]byte, 1+3*layout.Width())
	rec.EncodeInto(buf, 1+layout.Width())
	assert.Equal(t, []byte{' ', 'k', 'e', 'y', 'v', 0}, buf[1+layout.Width():1+2*layout.Width()])

	out, err := layout.DecodeFrom(buf, 1+layout.Width())
	require.NoError(t, err)
	assert.Equal(t, rec, out)
	assert.True(t, out.Holds([]byte("key"), []byte{'v', 0}))
	assert.True(t, out.HasKey([]byte("key")))
	assert.False(t, out.Holds([]byte("key"), []byte{'w', 0}))

	_, err = layout.DecodeFrom(buf, len(buf)-2)
	assert.Error(t, err)
}

func testDeactivateKeepsBytes(t *testing.T) {
	layout := entry.Layout{KeySize: 2, ValueSize: 2}
	rec := layout.New()
	require.NoError(t, rec.Activate([]byte("ab"), []byte("cd")))
	require.NoError(t, rec.Deactivate())
	assert.Equal(t, []byte("*abcd"), rec.Marshal())
	assert.False(t, rec.HasKey([]byte("ab")))
}

func testBadTag(t *testing.T) {
	layout := entry.Layout{KeySize: 1, ValueSize: 1}
	_, err := layout.DecodeFrom([]byte{0, 'a', 'b'}, 0)
	assert.ErrorIs(t, err, entry.ErrBadTag)
}

func testFormat(t *testing.T) {
	format, err := entry.NewFormat(codec.String(6), codec.Int32())
	require.NoError(t, err)
	assert.Equal(t, entry.Layout{KeySize: 8, ValueSize: 4}, format.Layout())

	k, v, err := format.Pack("ABC", 7)
	require.NoError(t, err)
	assert.Len(t, k, 8)
	assert.Len(t, v, 4)

	rec := format.Layout().New()
	require.NoError(t, rec.Activate(k, v))
	key, value, err := format.Unpack(rec)
	require.NoError(t, err)
	assert.Equal(t, "ABC", key)
	assert.Equal(t, int32(7), value)

	_, _, err = format.Pack("too long key", 1)
	assert.ErrorIs(t, err, codec.ErrEncoding)

	_, err = entry.NewFormat[string, int32](nil, codec.Int32())
	assert.ErrorIs(t, err, codec.ErrUnsupportedType)
}
