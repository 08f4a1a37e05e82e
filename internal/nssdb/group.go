package nssdb

import (
	"encoding/binary"
	"fmt"
)

// Group is one group record.
type Group struct {
	Name    string
	GID     uint32
	Members []string
}

// encodeGroup serializes a [Group] under its name key and its gid key.
func encodeGroup(wi *WriteInfo, rec any) error {
	gr, ok := rec.(Group)
	if !ok {
		return fmt.Errorf("group encoder got %T: %w", rec, ErrBadRecord)
	}

	if len(gr.Members) > 0xFFFF {
		return fmt.Errorf("group %q has %d members: %w", gr.Name, len(gr.Members), ErrBadRecord)
	}

	buf := wi.Scratch[:0]

	var err error

	if buf, err = appendString1(buf, gr.Name); err != nil {
		return err
	}

	buf = binary.BigEndian.AppendUint32(buf, gr.GID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(gr.Members)))

	for _, member := range gr.Members {
		if buf, err = appendString1(buf, member); err != nil {
			return err
		}
	}

	wi.Scratch = buf
	wi.Value = buf

	for _, key := range [][]byte{nameKey(gr.Name), idKey(gr.GID)} {
		wi.Key = key

		if err := wi.Insert(wi.Key, wi.Value); err != nil {
			return err
		}
	}

	return nil
}

// parseGroup inverts encodeGroup.
func parseGroup(value []byte) (any, error) {
	var (
		gr  Group
		pos int
		err error
	)

	if gr.Name, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pos+6 > len(value) {
		return nil, fmt.Errorf("truncated group header at %d: %w", pos, ErrBadRecord)
	}

	gr.GID = binary.BigEndian.Uint32(value[pos:])
	nmembers := int(binary.BigEndian.Uint16(value[pos+4:]))
	pos += 6

	if nmembers > 0 {
		gr.Members = make([]string, 0, nmembers)
	}

	for range nmembers {
		var member string

		if member, pos, err = readString1(value, pos); err != nil {
			return nil, err
		}

		gr.Members = append(gr.Members, member)
	}

	if pos != len(value) {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(value)-pos, ErrBadRecord)
	}

	return gr, nil
}
