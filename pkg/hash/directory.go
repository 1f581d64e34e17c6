package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"dinohash/pkg/config"
)

// Directory maps hash prefixes to bucket offsets.
//
// On disk it is a single global depth byte followed by 2^depth big-endian
// int64 bucket offsets. The whole table is read once at open; every change
// is written through before the call returns.
type Directory struct {
	file        File
	globalDepth int     // The **global** depth of the directory
	pointers    []int64 // Bucket offsets, indexed by hash mod 2^globalDepth
}

// createDirectory writes a new directory of depth 1 whose two entries both
// point at bucket.
func createDirectory(file File, bucket int64) (*Directory, error) {
	dir := &Directory{
		file:        file,
		globalDepth: INITIAL_GLOBAL_DEPTH,
		pointers:    make([]int64, 1<<INITIAL_GLOBAL_DEPTH),
	}
	for i := range dir.pointers {
		dir.pointers[i] = bucket
	}
	if err := writeFull(file, dir.marshal(), 0); err != nil {
		return nil, err
	}
	return dir, nil
}

// loadDirectory reads an existing directory. Bytes past the last pointer,
// such as page padding left by a crash, are truncated away.
func loadDirectory(file File) (*Directory, error) {
	header := make([]byte, DIRECTORY_HEADER_SIZE)
	if err := readFull(file, header, 0); err != nil {
		return nil, err
	}
	depth := int(header[0])
	if depth < INITIAL_GLOBAL_DEPTH || depth > config.MaxGlobalDepth {
		return nil, corruptf("%s: global depth %d", file.Name(), depth)
	}
	data := make([]byte, POINTER_SIZE<<depth)
	if err := readFull(file, data, DIRECTORY_HEADER_SIZE); err != nil {
		return nil, err
	}
	dir := &Directory{file: file, globalDepth: depth, pointers: make([]int64, 1<<depth)}
	for i := range dir.pointers {
		dir.pointers[i] = int64(binary.BigEndian.Uint64(data[int64(i)*POINTER_SIZE:]))
	}
	size, err := fileSize(file)
	if err != nil {
		return nil, err
	}
	if end := pointerPos(len(dir.pointers)); size > end {
		if err = file.Truncate(end); err != nil {
			return nil, &IOError{Op: "truncate", Path: file.Name(), Err: err}
		}
	}
	return dir, nil
}

// GetDepth returns the global depth.
func (dir *Directory) GetDepth() int {
	return dir.globalDepth
}

// Size returns the number of entries, 2^globalDepth.
func (dir *Directory) Size() int {
	return len(dir.pointers)
}

// Route returns the directory index for a hash.
func (dir *Directory) Route(hash uint64) int {
	return int(hash % uint64(dir.Size()))
}

// GetPointer returns the bucket offset stored at index.
func (dir *Directory) GetPointer(index int) int64 {
	return dir.pointers[index]
}

// GetPointers returns a copy of the pointer table.
func (dir *Directory) GetPointers() []int64 {
	return append([]int64(nil), dir.pointers...)
}

// SetPointer points index at the bucket at offset.
func (dir *Directory) SetPointer(index int, offset int64) error {
	if index < 0 || index >= dir.Size() {
		return fmt.Errorf("directory index %d out of range [0, %d)", index, dir.Size())
	}
	buf := make([]byte, POINTER_SIZE)
	binary.BigEndian.PutUint64(buf, uint64(offset))
	if err := writeFull(dir.file, buf, pointerPos(index)); err != nil {
		return err
	}
	dir.pointers[index] = offset
	return nil
}

// Double increases the global depth by one. The new upper half of the table
// is a copy of the lower half, so every hash keeps routing to the same bucket.
// The copy is written before the depth byte.
func (dir *Directory) Double() error {
	if dir.globalDepth >= config.MaxGlobalDepth {
		return fmt.Errorf("%w (%d)", ErrDirectoryFull, config.MaxGlobalDepth)
	}
	size := dir.Size()
	if err := writeFull(dir.file, dir.marshal()[DIRECTORY_HEADER_SIZE:], pointerPos(size)); err != nil {
		return err
	}
	if err := writeFull(dir.file, []byte{byte(dir.globalDepth + 1)}, 0); err != nil {
		return err
	}
	dir.globalDepth++
	dir.pointers = append(dir.pointers, dir.pointers...)
	return nil
}

// FindPointerTo returns the lowest index pointing at offset, or -1.
func (dir *Directory) FindPointerTo(offset int64) int {
	for i, p := range dir.pointers {
		if p == offset {
			return i
		}
	}
	return -1
}

// Print writes the directory as one "index -> offset" line per entry.
func (dir *Directory) Print(w io.Writer) {
	fmt.Fprintf(w, "global depth: %d\n", dir.globalDepth)
	for i, p := range dir.pointers {
		fmt.Fprintf(w, "%d -> %d\n", i, p)
	}
}

// marshal returns the directory's on-disk bytes.
func (dir *Directory) marshal() []byte {
	buf := make([]byte, DIRECTORY_HEADER_SIZE+POINTER_SIZE*int64(dir.Size()))
	buf[0] = byte(dir.globalDepth)
	for i, p := range dir.pointers {
		binary.BigEndian.PutUint64(buf[pointerPos(i):], uint64(p))
	}
	return buf
}

// pointerPos gets the byte-position of the pointer with the given index.
func pointerPos(index int) int64 {
	return DIRECTORY_HEADER_SIZE + int64(index)*POINTER_SIZE
}
