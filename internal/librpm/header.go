package librpm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Header data types, as stored in the type field of an index entry.
const (
	typeInt32       uint32 = 4
	typeString      uint32 = 6
	typeStringArray uint32 = 8
)

const (
	headerPreambleSize = 8
	indexEntrySize     = 16

	// maxIndexEntries bounds il so a corrupt preamble cannot ask for a huge
	// index allocation.
	maxIndexEntries = 1 << 16
)

// Header is a read-only view over one encoded package header.
//
// A Header never copies the blob it was parsed from. When the blob belongs
// to a [Cursor], the view (and any slice returned by [Header.Bytes]) is only
// valid until the cursor advances or is freed. The String, StringArray and
// Uint32 accessors return copies that stay valid forever.
type Header struct {
	num     uint32
	entries []indexEntry
	data    []byte
}

type indexEntry struct {
	tag    Tag
	typ    uint32
	offset uint32
	count  uint32
}

// ParseHeader validates blob and returns a view over it.
func ParseHeader(blob []byte) (*Header, error) {
	h := &Header{}

	err := h.reset(0, blob)
	if err != nil {
		return nil, err
	}

	return h, nil
}

// reset re-points h at blob, reusing the entry slice.
func (h *Header) reset(num uint32, blob []byte) error {
	h.num = num
	h.entries = h.entries[:0]
	h.data = nil

	if len(blob) < headerPreambleSize {
		return fmt.Errorf("%w: blob too short (%d bytes)", ErrCorruptHeader, len(blob))
	}

	il := binary.BigEndian.Uint32(blob[0:4])
	dl := binary.BigEndian.Uint32(blob[4:8])

	if il > maxIndexEntries {
		return fmt.Errorf("%w: %d index entries", ErrCorruptHeader, il)
	}

	dataStart := headerPreambleSize + int(il)*indexEntrySize
	if len(blob) != dataStart+int(dl) {
		return fmt.Errorf("%w: size %d, want %d", ErrCorruptHeader, len(blob), dataStart+int(dl))
	}

	h.data = blob[dataStart:]

	for i := range int(il) {
		off := headerPreambleSize + i*indexEntrySize
		e := indexEntry{
			tag:    Tag(binary.BigEndian.Uint32(blob[off:])),
			typ:    binary.BigEndian.Uint32(blob[off+4:]),
			offset: binary.BigEndian.Uint32(blob[off+8:]),
			count:  binary.BigEndian.Uint32(blob[off+12:]),
		}

		err := h.checkEntry(e)
		if err != nil {
			h.entries = h.entries[:0]
			h.data = nil

			return err
		}

		h.entries = append(h.entries, e)
	}

	return h.checkFiles()
}

func (h *Header) checkEntry(e indexEntry) error {
	if uint64(e.offset) > uint64(len(h.data)) {
		return fmt.Errorf("%w: tag %s offset %d out of range", ErrCorruptHeader, e.tag, e.offset)
	}

	switch e.typ {
	case typeInt32:
		if e.offset%4 != 0 || uint64(e.offset)+4*uint64(e.count) > uint64(len(h.data)) {
			return fmt.Errorf("%w: tag %s int32 data out of range", ErrCorruptHeader, e.tag)
		}
	case typeString, typeStringArray:
		if e.typ == typeString && e.count != 1 {
			return fmt.Errorf("%w: tag %s string count %d", ErrCorruptHeader, e.tag, e.count)
		}

		rest := h.data[e.offset:]
		for range e.count {
			end := bytes.IndexByte(rest, 0)
			if end < 0 {
				return fmt.Errorf("%w: tag %s unterminated string", ErrCorruptHeader, e.tag)
			}

			rest = rest[end+1:]
		}
	default:
		return fmt.Errorf("%w: tag %s has unknown type %d", ErrCorruptHeader, e.tag, e.typ)
	}

	return nil
}

// checkFiles verifies the dirnames/basenames/dirindexes triple so that
// TagInstFilenames can be computed without further checks.
func (h *Header) checkFiles() error {
	base, hasBase := h.find(TagBaseNames)
	if !hasBase {
		return nil
	}

	idx, hasIdx := h.find(TagDirIndexes)
	dirs, hasDirs := h.find(TagDirNames)

	if !hasIdx || !hasDirs || idx.count != base.count || idx.typ != typeInt32 || dirs.typ != typeStringArray {
		return fmt.Errorf("%w: inconsistent file list", ErrCorruptHeader)
	}

	if base.typ != typeStringArray && base.typ != typeString {
		return fmt.Errorf("%w: tag %s is not a string list", ErrCorruptHeader, TagBaseNames)
	}

	for i := range idx.count {
		if h.int32At(idx, i) >= dirs.count {
			return fmt.Errorf("%w: dirindex out of range", ErrCorruptHeader)
		}
	}

	return nil
}

func (h *Header) find(tag Tag) (indexEntry, bool) {
	for _, e := range h.entries {
		if e.tag == tag {
			return e, true
		}
	}

	return indexEntry{}, false
}

func (h *Header) int32At(e indexEntry, i uint32) uint32 {
	return binary.BigEndian.Uint32(h.data[e.offset+4*i:])
}

// rawStrings appends borrowed slices for every string stored in e.
func (h *Header) rawStrings(dst [][]byte, e indexEntry) [][]byte {
	rest := h.data[e.offset:]
	for range e.count {
		end := bytes.IndexByte(rest, 0)
		dst = append(dst, rest[:end])
		rest = rest[end+1:]
	}

	return dst
}

// Num returns the database record number of the header, or 0 for headers
// that were not read from a database.
func (h *Header) Num() uint32 {
	return h.num
}

// Tags lists the tags stored in the header, in storage order.
func (h *Header) Tags() []Tag {
	tags := make([]Tag, 0, len(h.entries))
	for _, e := range h.entries {
		tags = append(tags, e.tag)
	}

	return tags
}

// Bytes returns the borrowed bytes of a STRING tag. The slice aliases the
// header blob.
func (h *Header) Bytes(tag Tag) ([]byte, bool) {
	e, ok := h.find(tag)
	if !ok || e.typ != typeString {
		return nil, false
	}

	end := bytes.IndexByte(h.data[e.offset:], 0)

	return h.data[e.offset : int(e.offset)+end], true
}

// String returns a copy of a STRING tag.
func (h *Header) String(tag Tag) (string, bool) {
	b, ok := h.Bytes(tag)
	if !ok {
		return "", false
	}

	return string(b), true
}

// StringArray returns a copy of a STRING_ARRAY tag. TagInstFilenames is
// computed from the stored file triple.
func (h *Header) StringArray(tag Tag) []string {
	if tag == TagInstFilenames {
		return h.instFilenames()
	}

	e, ok := h.find(tag)
	if !ok || e.typ != typeStringArray {
		return nil
	}

	raw := h.rawStrings(make([][]byte, 0, e.count), e)

	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = string(s)
	}

	return out
}

// Uint32 returns the first value of an INT32 tag.
func (h *Header) Uint32(tag Tag) (uint32, bool) {
	e, ok := h.find(tag)
	if !ok || e.typ != typeInt32 || e.count == 0 {
		return 0, false
	}

	return h.int32At(e, 0), true
}

func (h *Header) instFilenames() []string {
	base, ok := h.find(TagBaseNames)
	if !ok {
		return nil
	}

	dirsEntry, _ := h.find(TagDirNames)
	idx, _ := h.find(TagDirIndexes)

	dirs := h.rawStrings(make([][]byte, 0, dirsEntry.count), dirsEntry)
	bases := h.rawStrings(make([][]byte, 0, base.count), base)

	out := make([]string, len(bases))
	for i, b := range bases {
		out[i] = string(dirs[h.int32At(idx, uint32(i))]) + string(b)
	}

	return out
}

// Matches reports whether the value of tag equals key byte for byte. For
// array tags any element may match.
func (h *Header) Matches(tag Tag, key []byte) bool {
	if tag == TagInstFilenames {
		return h.matchesFilename(key)
	}

	e, ok := h.find(tag)
	if !ok {
		return false
	}

	switch e.typ {
	case typeString, typeStringArray:
		rest := h.data[e.offset:]
		for range e.count {
			end := bytes.IndexByte(rest, 0)
			if bytes.Equal(rest[:end], key) {
				return true
			}

			rest = rest[end+1:]
		}
	case typeInt32:
		for i := range e.count {
			if strconv.FormatUint(uint64(h.int32At(e, i)), 10) == string(key) {
				return true
			}
		}
	}

	return false
}

func (h *Header) matchesFilename(key []byte) bool {
	base, ok := h.find(TagBaseNames)
	if !ok {
		return false
	}

	dirsEntry, _ := h.find(TagDirNames)
	idx, _ := h.find(TagDirIndexes)
	dirs := h.rawStrings(make([][]byte, 0, dirsEntry.count), dirsEntry)

	rest := h.data[base.offset:]
	for i := range base.count {
		end := bytes.IndexByte(rest, 0)
		dir := dirs[h.int32At(idx, i)]

		if len(key) == len(dir)+end && bytes.HasPrefix(key, dir) && bytes.Equal(key[len(dir):], rest[:end]) {
			return true
		}

		rest = rest[end+1:]
	}

	return false
}
