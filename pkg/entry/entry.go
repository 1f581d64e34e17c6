// Package entry implements the fixed-width record slot stored inside hash buckets.
//
// A slot is laid out as
//
//	[ tag (1 byte) | key region (KeySize bytes) | value region (ValueSize bytes) ]
//
// with both regions zero-padded. Every slot of an index has the same width.
package entry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Tag marks a slot as holding a live record or as free.
type Tag byte

const (
	Active   Tag = ' '
	Inactive Tag = '*'
)

// TagSize is the number of bytes the tag takes at the start of a slot.
const TagSize = 1

var (
	// ErrRecordActive is returned when activating a slot that already holds a record.
	ErrRecordActive = errors.New("record is already active")

	// ErrRecordInactive is returned when deactivating a free slot.
	ErrRecordInactive = errors.New("record is not active")

	// ErrBadTag is returned when decoding a slot whose tag byte is neither Active nor Inactive.
	ErrBadTag = errors.New("invalid record tag")
)

func (tag Tag) String() string {
	switch tag {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return fmt.Sprintf("tag(%#x)", byte(tag))
	}
}

// Layout fixes the key and value region widths of every slot in an index.
type Layout struct {
	KeySize   int
	ValueSize int
}

// Width is the total byte width of one slot.
func (layout Layout) Width() int {
	return TagSize + layout.KeySize + layout.ValueSize
}

// New returns an inactive record with zeroed regions.
func (layout Layout) New() Record {
	return Record{
		tag:   Inactive,
		key:   make([]byte, layout.KeySize),
		value: make([]byte, layout.ValueSize),
	}
}

// DecodeFrom reads the slot starting at buf[offset:]. The returned record owns its bytes.
func (layout Layout) DecodeFrom(buf []byte, offset int) (Record, error) {
	if offset < 0 || offset+layout.Width() > len(buf) {
		return Record{}, fmt.Errorf("decode record at %d: %w", offset, io.ErrUnexpectedEOF)
	}
	tag := Tag(buf[offset])
	if tag != Active && tag != Inactive {
		return Record{}, fmt.Errorf("decode record at %d: %w %s", offset, ErrBadTag, tag)
	}
	rec := layout.New()
	rec.tag = tag
	start := offset + TagSize
	copy(rec.key, buf[start:start+layout.KeySize])
	copy(rec.value, buf[start+layout.KeySize:start+layout.KeySize+layout.ValueSize])
	return rec, nil
}

// Record is a key-value slot. Key and Value hold the zero-padded regions.
type Record struct {
	tag   Tag
	key   []byte
	value []byte
}

// Tag returns the record's tag.
func (rec Record) Tag() Tag {
	return rec.tag
}

// IsActive reports whether the record holds a live key-value pair.
func (rec Record) IsActive() bool {
	return rec.tag == Active
}

// Key returns the padded key region.
func (rec Record) Key() []byte {
	return rec.key
}

// Value returns the padded value region.
func (rec Record) Value() []byte {
	return rec.value
}

// Activate stores key and value in a free record. Both are copied and
// zero-padded to the record's region widths.
func (rec *Record) Activate(key []byte, value []byte) error {
	if rec.tag == Active {
		return ErrRecordActive
	}
	if len(key) > len(rec.key) || len(value) > len(rec.value) {
		return fmt.Errorf("activate record: key %d/%d or value %d/%d bytes: %w",
			len(key), len(rec.key), len(value), len(rec.value), io.ErrShortBuffer)
	}
	clear(rec.key[copy(rec.key, key):])
	clear(rec.value[copy(rec.value, value):])
	rec.tag = Active
	return nil
}

// Deactivate frees the record. Only the tag changes; the old bytes stay
// in place until the slot is activated again.
func (rec *Record) Deactivate() error {
	if rec.tag != Active {
		return ErrRecordInactive
	}
	rec.tag = Inactive
	return nil
}

// EncodeInto writes the record at buf[offset:]. buf may be a whole bucket
// buffer or a buffer of exactly one slot.
func (rec Record) EncodeInto(buf []byte, offset int) {
	buf[offset] = byte(rec.tag)
	start := offset + TagSize
	copy(buf[start:start+len(rec.key)], rec.key)
	copy(buf[start+len(rec.key):start+len(rec.key)+len(rec.value)], rec.value)
}

// Marshal returns the record's slot bytes.
func (rec Record) Marshal() []byte {
	buf := make([]byte, TagSize+len(rec.key)+len(rec.value))
	rec.EncodeInto(buf, 0)
	return buf
}

// HasKey reports whether the record is active and holds key (a padded region).
func (rec Record) HasKey(key []byte) bool {
	return rec.tag == Active && bytes.Equal(rec.key, key)
}

// Holds reports whether the record is active and holds exactly this key-value pair.
func (rec Record) Holds(key []byte, value []byte) bool {
	return rec.HasKey(key) && bytes.Equal(rec.value, value)
}

// Print writes the record to the specified writer in the following format: (<key>, <value>)
func (rec Record) Print(w io.Writer) {
	fmt.Fprintf(w, "(%q, %q), ", bytes.TrimRight(rec.key, "\x00"), bytes.TrimRight(rec.value, "\x00"))
}
