package mcdb

import (
	"fmt"
	"iter"
)

// Records walks the record region sequentially, from the end of the
// directory to the first hash table, yielding each (key, value) pair in
// file order.
//
// The yielded slices are borrowed from the mapped image and are valid
// only while this version stays mapped. Trailing zero-padding before the
// tables is skipped: a record needs at least its 8-byte header, and the
// padding is always shorter.
func (m *Map) Records() iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		d := m.data
		if d == nil {
			return
		}

		pos := uint64(HeaderSize)

		for pos+recHeaderSize <= m.recordsEnd {
			klen := uint64(be32(d[pos:]))
			vlen := uint64(be32(d[pos+4:]))

			end := pos + recHeaderSize + klen + vlen
			if end < pos || end > m.recordsEnd {
				return
			}

			kpos := pos + recHeaderSize

			if !yield(d[kpos:kpos+klen], d[kpos+klen:end]) {
				return
			}

			pos = end
		}
	}
}

// Check verifies the structural invariants of the mapped database:
// every populated table entry (h, p) lives in slot h mod [Slots], points
// at a record inside the record region, and that record's key hashes to
// h; and the number of populated entries equals the number of records.
//
// Intended for consistency checks after a build or when diagnosing a
// suspect file; lookups do not depend on it.
func (m *Map) Check() error {
	if m.data == nil {
		return ErrClosed
	}

	var populated uint64

	for s, ref := range m.refs {
		for i := uint64(0); i < ref.count; i++ {
			epos := ref.off + i*entrySize
			h := be32(m.data[epos:])
			p := be64(m.data[epos+4:])

			if p == 0 {
				continue
			}

			populated++

			if uint64(h)&(Slots-1) != uint64(s) {
				return fmt.Errorf("slot %d entry %d: hash %#x belongs in slot %d: %w",
					s, i, h, h&(Slots-1), ErrCorrupt)
			}

			if p < HeaderSize || p+recHeaderSize > m.recordsEnd {
				return fmt.Errorf("slot %d entry %d: record position %d outside record region: %w",
					s, i, p, ErrCorrupt)
			}

			klen := uint64(be32(m.data[p:]))
			vlen := uint64(be32(m.data[p+4:]))

			end := p + recHeaderSize + klen + vlen
			if end < p || end > m.recordsEnd {
				return fmt.Errorf("slot %d entry %d: record [%d,%d) outside record region: %w",
					s, i, p, end, ErrCorrupt)
			}

			if got := Hash(m.data[p+recHeaderSize : p+recHeaderSize+klen]); got != h {
				return fmt.Errorf("slot %d entry %d: stored hash %#x, key hashes to %#x: %w",
					s, i, h, got, ErrCorrupt)
			}
		}
	}

	var records uint64

	for range m.Records() {
		records++
	}

	if populated != records {
		return fmt.Errorf("%d table entries for %d records: %w", populated, records, ErrCorrupt)
	}

	return nil
}
