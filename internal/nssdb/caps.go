// Package nssdb maps name-service datasets (user accounts, groups,
// network services) onto constant databases.
//
// Each dataset provides a capability pair: an Encode that serializes an
// in-memory record into a scratch buffer and hands the derived key(s) to
// an insertion callback, and a Parse that inverts the encoding when
// reading back. The database core never interprets the bytes.
package nssdb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadRecord indicates a value that does not parse as the dataset's
// encoding, or a record that cannot be encoded within the format limits.
var ErrBadRecord = errors.New("nssdb: bad record")

// WriteInfo carries the encoding state for one record: a reusable scratch
// buffer, the key/value slices of the current insertion, and the callback
// that hands them to the database builder.
//
// Encode implementations serialize into Scratch (growing it as needed),
// set Key and Value, and call Insert once per derived key. A record is
// typically inserted under several keys, e.g. an account under both its
// name and its uid.
type WriteInfo struct {
	Scratch []byte
	Key     []byte
	Value   []byte
	Insert  func(key, value []byte) error
}

// Caps is the capability set of one dataset.
//
// Datasets are dispatched by identity through [Lookup], not by
// inheritance; the record type behind the any is fixed per dataset
// (e.g. [Passwd] for "passwd").
type Caps struct {
	Encode func(wi *WriteInfo, rec any) error
	Parse  func(value []byte) (any, error)
}

var registry = map[string]Caps{
	"passwd":   {Encode: encodePasswd, Parse: parsePasswd},
	"group":    {Encode: encodeGroup, Parse: parseGroup},
	"services": {Encode: encodeServices, Parse: parseServices},
}

// Lookup returns the capability set for a dataset identity.
func Lookup(dataset string) (Caps, bool) {
	c, ok := registry[dataset]

	return c, ok
}

// Datasets returns the known dataset identities.
func Datasets() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	return names
}

// Key tag bytes. Every derived key starts with a tag so the keyspaces of
// one database cannot collide.
const (
	tagName = 'n' // primary name lookup
	tagID   = '=' // numeric id lookup (uid, gid, port)
)

// appendString1 appends a length-prefixed string (1-byte length).
func appendString1(buf []byte, s string) ([]byte, error) {
	if len(s) > 0xFF {
		return nil, fmt.Errorf("field %q longer than 255 bytes: %w", s, ErrBadRecord)
	}

	buf = append(buf, byte(len(s)))

	return append(buf, s...), nil
}

// readString1 reads a length-prefixed string and advances the position.
func readString1(b []byte, pos int) (string, int, error) {
	if pos >= len(b) {
		return "", 0, fmt.Errorf("truncated value at %d: %w", pos, ErrBadRecord)
	}

	n := int(b[pos])
	pos++

	if pos+n > len(b) {
		return "", 0, fmt.Errorf("truncated field at %d: %w", pos, ErrBadRecord)
	}

	return string(b[pos : pos+n]), pos + n, nil
}

// nameKey derives the tagged name key for a record.
func nameKey(name string) []byte {
	k := make([]byte, 0, 1+len(name))
	k = append(k, tagName)

	return append(k, name...)
}

// idKey derives the tagged numeric-id key for a record.
func idKey(id uint32) []byte {
	k := make([]byte, 5)
	k[0] = tagID
	binary.BigEndian.PutUint32(k[1:], id)

	return k
}

// NameKey returns the lookup key for a record's name.
func NameKey(name string) []byte {
	return nameKey(name)
}

// IDKey returns the lookup key for a record's numeric id.
func IDKey(id uint32) []byte {
	return idKey(id)
}
