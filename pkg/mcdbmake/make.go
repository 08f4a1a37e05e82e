// Package mcdbmake builds constant database files for
// [github.com/haguenau/mcdb/pkg/mcdb].
//
// A build accumulates (key, value) pairs in memory, serializes them into
// the directory/records/tables layout, and publishes the result by
// writing a temporary file and renaming it over the target name. Readers
// holding the old file keep their mapping; the rename is what makes the
// replacement visible to [mcdb.Map.RefreshCheck].
package mcdbmake

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/natefinch/atomic"

	"github.com/haguenau/mcdb/pkg/mcdb"
)

// Build limits. Key and value lengths are bounded by the record header's
// 32-bit fields; the record count is capped at 2^31-1.
const (
	MaxDataLen = mcdb.MaxDataLen
	MaxRecords = 1<<31 - 1
)

var (
	// ErrTooBig indicates a key, value, or the whole database exceeded a
	// format limit.
	ErrTooBig = errors.New("mcdbmake: too big")

	// ErrDuplicateKey is reported by [Maker.CheckDistinct] for datasets
	// that require unique keys. The builder itself permits duplicates.
	ErrDuplicateKey = errors.New("mcdbmake: duplicate key")
)

type record struct {
	hash  uint32
	key   []byte
	value []byte
}

// Maker accumulates records for one database build.
//
// Records are kept in insertion order; duplicate keys are permitted and
// are retrievable in this order. A Maker is not safe for concurrent use.
type Maker struct {
	records  []record
	dataSize uint64 // record region bytes accumulated so far
}

// New returns an empty Maker. The estimate pre-sizes the record list and
// may be zero.
func New(estimate int) *Maker {
	mk := &Maker{}

	if estimate > 0 {
		mk.records = make([]record, 0, estimate)
	}

	return mk
}

// Add appends one (key, value) pair. The bytes are copied; callers may
// reuse their buffers.
func (mk *Maker) Add(key, value []byte) error {
	if uint64(len(key)) > MaxDataLen {
		return fmt.Errorf("key length %d exceeds %d: %w", len(key), int64(MaxDataLen), ErrTooBig)
	}

	if uint64(len(value)) > MaxDataLen {
		return fmt.Errorf("value length %d exceeds %d: %w", len(value), int64(MaxDataLen), ErrTooBig)
	}

	if len(mk.records) >= MaxRecords {
		return fmt.Errorf("record count %d exceeds %d: %w", len(mk.records), MaxRecords, ErrTooBig)
	}

	k := make([]byte, len(key))
	copy(k, key)

	v := make([]byte, len(value))
	copy(v, value)

	mk.records = append(mk.records, record{hash: mcdb.Hash(k), key: k, value: v})
	mk.dataSize += recHeaderSize + uint64(len(k)) + uint64(len(v))

	return nil
}

// Len returns the number of records added so far.
func (mk *Maker) Len() int {
	return len(mk.records)
}

// CheckDistinct reports the first key that was added more than once.
// Dataset builds that derive unique keys run this before publishing.
func (mk *Maker) CheckDistinct() error {
	seen := make(map[string]struct{}, len(mk.records))

	for _, r := range mk.records {
		if _, dup := seen[string(r.key)]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, r.key)
		}

		seen[string(r.key)] = struct{}{}
	}

	return nil
}

// Bytes serializes the database image.
//
// The layout is deterministic: the same pairs added in the same order
// produce a byte-identical image. Padding between the record region and
// the tables is zero.
func (mk *Maker) Bytes() ([]byte, error) {
	// Records per slot; table length is 2x so at least half of every
	// table's entries stay empty and probes terminate quickly.
	var perSlot [mcdb.Slots]uint64

	for _, r := range mk.records {
		perSlot[r.hash&(mcdb.Slots-1)]++
	}

	recordsLen := mk.dataSize
	pad := (8 - (mcdb.HeaderSize+recordsLen)%8) % 8

	tablesLen := uint64(0)
	for _, n := range perSlot {
		tablesLen += 2 * n * entrySize
	}

	total := mcdb.HeaderSize + recordsLen + pad + tablesLen
	if total > 1<<62 {
		return nil, fmt.Errorf("database size %d overflows: %w", total, ErrTooBig)
	}

	buf := make([]byte, total)

	// Directory: every slot gets a table offset, empty slots included,
	// so the lowest offset always marks the end of the record region.
	tableOff := make([]uint64, mcdb.Slots)
	off := mcdb.HeaderSize + recordsLen + pad

	for s := range mcdb.Slots {
		tableOff[s] = off
		binary.BigEndian.PutUint64(buf[s*16:], off)
		binary.BigEndian.PutUint64(buf[s*16+8:], 2*perSlot[s])
		off += 2 * perSlot[s] * entrySize
	}

	// Records, in insertion order.
	pos := uint64(mcdb.HeaderSize)
	posOf := make([]uint64, len(mk.records))

	for i, r := range mk.records {
		posOf[i] = pos
		binary.BigEndian.PutUint32(buf[pos:], uint32(len(r.key)))
		binary.BigEndian.PutUint32(buf[pos+4:], uint32(len(r.value)))
		copy(buf[pos+recHeaderSize:], r.key)
		copy(buf[pos+recHeaderSize+uint64(len(r.key)):], r.value)
		pos += recHeaderSize + uint64(len(r.key)) + uint64(len(r.value))
	}

	// Tables. Records are placed in insertion order, each starting at
	// (hash >> 8) mod tablelen and probing linearly to the first empty
	// entry, so duplicates land on their shared probe path in insertion
	// order and readers enumerate them the same way.
	for i, r := range mk.records {
		s := r.hash & (mcdb.Slots - 1)
		tlen := 2 * perSlot[s]
		k := (uint64(r.hash) >> mcdb.SlotBits) % tlen

		for {
			epos := tableOff[s] + k*entrySize
			if binary.BigEndian.Uint64(buf[epos+4:]) == 0 {
				binary.BigEndian.PutUint32(buf[epos:], r.hash)
				binary.BigEndian.PutUint64(buf[epos+4:], posOf[i])

				break
			}

			k++
			if k == tlen {
				k = 0
			}
		}
	}

	return buf, nil
}

// WriteTo serializes the database image into w. Implements [io.WriterTo].
func (mk *Maker) WriteTo(w io.Writer) (int64, error) {
	buf, err := mk.Bytes()
	if err != nil {
		return 0, err
	}

	n, err := w.Write(buf)

	return int64(n), err
}

// Create serializes the database and publishes it at path atomically:
// the image is written to a temporary file which is renamed over path.
// Concurrent readers of an existing database at path are undisturbed and
// pick the replacement up on their next refresh.
func (mk *Maker) Create(path string) error {
	buf, err := mk.Bytes()
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}

	return nil
}

// Wire sizes, mirrored from the reader's format.
const (
	entrySize     = 12
	recHeaderSize = 8
)
