package nssdb

import (
	"encoding/binary"
	"fmt"
)

// Passwd is one user-account record.
type Passwd struct {
	Name  string
	UID   uint32
	GID   uint32
	Gecos string
	Dir   string
	Shell string
}

// encodePasswd serializes a [Passwd] and inserts it under its name key
// and its uid key, so both getpwnam- and getpwuid-style lookups hit.
func encodePasswd(wi *WriteInfo, rec any) error {
	pw, ok := rec.(Passwd)
	if !ok {
		return fmt.Errorf("passwd encoder got %T: %w", rec, ErrBadRecord)
	}

	buf := wi.Scratch[:0]

	var err error

	if buf, err = appendString1(buf, pw.Name); err != nil {
		return err
	}

	buf = binary.BigEndian.AppendUint32(buf, pw.UID)
	buf = binary.BigEndian.AppendUint32(buf, pw.GID)

	if buf, err = appendString1(buf, pw.Gecos); err != nil {
		return err
	}

	if buf, err = appendString1(buf, pw.Dir); err != nil {
		return err
	}

	if buf, err = appendString1(buf, pw.Shell); err != nil {
		return err
	}

	wi.Scratch = buf
	wi.Value = buf

	for _, key := range [][]byte{nameKey(pw.Name), idKey(pw.UID)} {
		wi.Key = key

		if err := wi.Insert(wi.Key, wi.Value); err != nil {
			return err
		}
	}

	return nil
}

// parsePasswd inverts encodePasswd.
func parsePasswd(value []byte) (any, error) {
	var (
		pw  Passwd
		pos int
		err error
	)

	if pw.Name, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pos+8 > len(value) {
		return nil, fmt.Errorf("truncated ids at %d: %w", pos, ErrBadRecord)
	}

	pw.UID = binary.BigEndian.Uint32(value[pos:])
	pw.GID = binary.BigEndian.Uint32(value[pos+4:])
	pos += 8

	if pw.Gecos, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pw.Dir, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pw.Shell, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pos != len(value) {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(value)-pos, ErrBadRecord)
	}

	return pw, nil
}
