package hash

import (
	"encoding/binary"
	"testing"

	"dinohash/internal/testutil"
	"dinohash/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// directoryBytes builds the on-disk form of a directory.
func directoryBytes(depth int, pointers ...int64) []byte {
	buf := []byte{byte(depth)}
	for _, p := range pointers {
		buf = binary.BigEndian.AppendUint64(buf, uint64(p))
	}
	return buf
}

func TestDirectory(t *testing.T) {
	t.Run("Create", testDirectoryCreate)
	t.Run("Route", testDirectoryRoute)
	t.Run("SetPointer", testDirectorySetPointer)
	t.Run("Double", testDirectoryDouble)
	t.Run("DoubleLimit", testDirectoryDoubleLimit)
	t.Run("FindPointerTo", testDirectoryFindPointerTo)
	t.Run("Load", testDirectoryLoad)
	t.Run("LoadCorrupt", testDirectoryLoadCorrupt)
	t.Run("WriteFailure", testDirectoryWriteFailure)
}

func testDirectoryCreate(t *testing.T) {
	file := testutil.NewMemFile("dir")
	dir, err := createDirectory(file, FIRST_BUCKET_OFFSET)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.GetDepth())
	assert.Equal(t, 2, dir.Size())
	assert.Equal(t, directoryBytes(1, 4, 4), file.Bytes())
}

func testDirectoryRoute(t *testing.T) {
	dir := &Directory{globalDepth: 3, pointers: make([]int64, 8)}
	assert.Equal(t, 0, dir.Route(0))
	assert.Equal(t, 5, dir.Route(13))
	assert.Equal(t, 7, dir.Route(^uint64(0)))
}

func testDirectorySetPointer(t *testing.T) {
	file := testutil.NewMemFile("dir")
	dir, err := createDirectory(file, 4)
	require.NoError(t, err)
	require.NoError(t, dir.SetPointer(1, 99))
	assert.Equal(t, int64(99), dir.GetPointer(1))
	assert.Equal(t, directoryBytes(1, 4, 99), file.Bytes())
	assert.Error(t, dir.SetPointer(2, 5))
}

// Doubling copies the pointer table so every hash keeps its bucket.
func testDirectoryDouble(t *testing.T) {
	file := testutil.NewMemFile("dir")
	dir, err := createDirectory(file, 4)
	require.NoError(t, err)
	require.NoError(t, dir.SetPointer(1, 20))
	require.NoError(t, dir.Double())

	assert.Equal(t, 2, dir.GetDepth())
	assert.Equal(t, []int64{4, 20, 4, 20}, dir.GetPointers())
	assert.Equal(t, directoryBytes(2, 4, 20, 4, 20), file.Bytes())
	for h := uint64(0); h < 16; h++ {
		assert.Equal(t, dir.GetPointer(int(h%2)), dir.GetPointer(dir.Route(h)))
	}
}

func testDirectoryDoubleLimit(t *testing.T) {
	dir := &Directory{file: testutil.NewMemFile("dir"), globalDepth: config.MaxGlobalDepth, pointers: []int64{4}}
	assert.ErrorIs(t, dir.Double(), ErrDirectoryFull)
	assert.Equal(t, config.MaxGlobalDepth, dir.GetDepth())
}

func testDirectoryFindPointerTo(t *testing.T) {
	dir := &Directory{globalDepth: 2, pointers: []int64{4, 10, 4, 10}}
	assert.Equal(t, 0, dir.FindPointerTo(4))
	assert.Equal(t, 1, dir.FindPointerTo(10))
	assert.Equal(t, -1, dir.FindPointerTo(16))
}

func testDirectoryLoad(t *testing.T) {
	// Trailing bytes past the last pointer are cut off.
	file := testutil.NewMemFileWith("dir", append(directoryBytes(2, 4, 12, 4, 20), 0, 0, 0))
	dir, err := loadDirectory(file)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.GetDepth())
	assert.Equal(t, []int64{4, 12, 4, 20}, dir.GetPointers())
	assert.Equal(t, directoryBytes(2, 4, 12, 4, 20), file.Bytes())
}

func testDirectoryLoadCorrupt(t *testing.T) {
	tests := map[string][]byte{
		"ZeroDepth":     directoryBytes(0, 4),
		"TooDeep":       directoryBytes(config.MaxGlobalDepth+1, 4),
		"ShortPointers": directoryBytes(2, 4, 4, 4),
		"Empty":         {},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadDirectory(testutil.NewMemFileWith("dir", data))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

// A failed write leaves the in-memory table as it was.
func testDirectoryWriteFailure(t *testing.T) {
	file := testutil.NewFaultyFile(testutil.NewMemFile("dir"))
	dir, err := createDirectory(file, 4)
	require.NoError(t, err)
	file.WritesLeft = 0

	err = dir.SetPointer(0, 40)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, int64(4), dir.GetPointer(0))

	assert.ErrorIs(t, dir.Double(), ErrIO)
	assert.Equal(t, 1, dir.GetDepth())
}
