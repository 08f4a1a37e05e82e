package mcdb

import "encoding/binary"

// On-disk format constants.
//
// A database file is laid out as three regions:
//
//	directory   256 slots x (offset uint64, count uint64), 4096 bytes
//	records     klen uint32 | vlen uint32 | key | value, repeated
//	tables      256 hash tables, one per slot, entries of (hash, pos)
//
// All multi-byte integers are big-endian. The format is fixed so files
// round-trip across architectures; on little-endian hardware the swap cost
// is negligible next to the memory-load latency of the probe itself.
const (
	// SlotBits selects how many directory slots a hash is spread over.
	SlotBits = 8

	// Slots is the number of directory slots (and hash tables).
	Slots = 1 << SlotBits

	// HeaderSize is the byte size of the directory at the start of the
	// file: one (offset, count) pair of uint64s per slot.
	HeaderSize = Slots * 16

	// entrySize is the byte size of one hash-table entry:
	// hash uint32 | pos uint64. A pos of zero marks an empty entry.
	entrySize = 12

	// recHeaderSize is the byte size of a record header:
	// klen uint32 | vlen uint32.
	recHeaderSize = 8

	// MaxDataLen bounds the length of a single key or value.
	MaxDataLen = 1<<31 - 1 - recHeaderSize
)

// hashInit is the djb2 starting value.
const hashInit = 5381

// Hash returns the 32-bit djb2 (xor variant) hash of key.
//
// The hash is part of the on-disk format: slot index is Hash(key) mod
// [Slots], and the probe start within a slot's table is (Hash(key) >> 8)
// mod the table length. It is deliberately fast, not collision-resistant.
func Hash(key []byte) uint32 {
	h := uint32(hashInit)
	for _, b := range key {
		h = ((h << 5) + h) ^ uint32(b)
	}

	return h
}

// slotRef is one decoded directory slot: the byte offset of the slot's
// hash table and the table's length in entries.
type slotRef struct {
	off   uint64
	count uint64
}

func be32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func be64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
