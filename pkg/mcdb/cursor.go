package mcdb

import (
	"bytes"
	"fmt"
)

// Cursor is the per-lookup probe state for one [Map] version.
//
// A cursor is cheap to create and is meant to live for a single search:
// [Cursor.FindStart] positions it on a key's probe sequence and
// [Cursor.FindNext] advances through matches, returning duplicates in the
// order the builder inserted them. A cursor keeps observing the map
// version it was bound to even if the chain is refreshed mid-search;
// refresh never rewrites cursor state.
//
// Cursors are not safe for concurrent use. Create one per goroutine.
type Cursor struct {
	m *Map

	khash  uint32 // hash of the key being searched
	loop   uint64 // probes performed so far
	hslots uint64 // table length of the key's slot
	toff   uint64 // table base, for wraparound
	tend   uint64 // table end
	hpos   uint64 // next entry position

	dpos uint64 // value position of the last match
	dlen uint32 // value length of the last match
}

// NewCursor returns a cursor bound to m.
func NewCursor(m *Map) *Cursor {
	return &Cursor{m: m}
}

// Map returns the map version this cursor is bound to.
func (c *Cursor) Map() *Map {
	return c.m
}

// FindStart positions the cursor at the start of key's probe sequence.
//
// The probe begins at entry (Hash(key) >> 8) mod tablelen of the table for
// slot Hash(key) mod [Slots]. An empty table exhausts the cursor
// immediately.
func (c *Cursor) FindStart(key []byte) {
	h := Hash(key)

	c.khash = h
	c.loop = 0
	c.dpos = 0
	c.dlen = 0

	ref := c.m.refs[h&(Slots-1)]
	if ref.count == 0 {
		c.hslots = 0

		return
	}

	c.hslots = ref.count
	c.toff = ref.off
	c.tend = ref.off + ref.count*entrySize
	c.hpos = ref.off + ((uint64(h) >> SlotBits) % ref.count * entrySize)
}

// FindNext advances to the next record whose key equals key.
//
// It reports false once the probe sequence is exhausted: either an empty
// entry was reached (no further matches can exist in an open-addressed
// table) or every entry of the table has been probed. After a true
// return, [Cursor.Value] and [Cursor.ValuePos] describe the match.
//
// A structural error ([ErrCorrupt]) exhausts the cursor.
func (c *Cursor) FindNext(key []byte) (bool, error) {
	d := c.m.data
	if d == nil {
		return false, ErrClosed
	}

	for c.loop < c.hslots {
		entryHash := be32(d[c.hpos:])
		entryPos := be64(d[c.hpos+4:])

		c.hpos += entrySize
		if c.hpos == c.tend {
			c.hpos = c.toff
		}

		c.loop++

		if entryPos == 0 {
			// Empty entry: end of this key's probe sequence.
			c.loop = c.hslots

			return false, nil
		}

		if entryHash != c.khash {
			continue
		}

		if entryPos+recHeaderSize > c.m.size {
			return false, c.fail(fmt.Errorf("record header at %d outside map of %d bytes: %w",
				entryPos, c.m.size, ErrCorrupt))
		}

		klen := be32(d[entryPos:])
		vlen := be32(d[entryPos+4:])

		if klen > MaxDataLen || vlen > MaxDataLen {
			return false, c.fail(fmt.Errorf("record at %d: impossible lengths %d/%d: %w",
				entryPos, klen, vlen, ErrCorrupt))
		}

		kpos := entryPos + recHeaderSize
		end := kpos + uint64(klen) + uint64(vlen)

		if end > c.m.size {
			return false, c.fail(fmt.Errorf("record [%d,%d) outside map of %d bytes: %w",
				entryPos, end, c.m.size, ErrCorrupt))
		}

		if uint64(klen) != uint64(len(key)) {
			continue
		}

		if !bytes.Equal(d[kpos:kpos+uint64(klen)], key) {
			continue
		}

		c.dpos = kpos + uint64(klen)
		c.dlen = vlen

		return true, nil
	}

	return false, nil
}

// Find is FindStart followed by one FindNext.
func (c *Cursor) Find(key []byte) (bool, error) {
	c.FindStart(key)

	return c.FindNext(key)
}

// Value returns the matched value as a slice borrowed from the mapped
// image. It is valid only while the cursor's map version stays mapped; use
// [Cursor.ValueCopy] or [Map.Read] for an owned copy.
func (c *Cursor) Value() []byte {
	return c.m.data[c.dpos : c.dpos+uint64(c.dlen)]
}

// ValueCopy returns the matched value as a freshly allocated slice.
func (c *Cursor) ValueCopy() []byte {
	v := make([]byte, c.dlen)
	copy(v, c.m.data[c.dpos:])

	return v
}

// ValuePos returns the byte offset and length of the matched value within
// the mapped image, for callers doing their own region arithmetic.
func (c *Cursor) ValuePos() (pos uint64, length uint32) {
	return c.dpos, c.dlen
}

// Probes returns the number of table entries inspected so far by the
// current search. Never exceeds the table length of the key's slot.
func (c *Cursor) Probes() int {
	return int(c.loop)
}

// fail exhausts the cursor and passes the structural error through.
func (c *Cursor) fail(err error) error {
	c.loop = c.hslots

	return err
}
