package nssdb

import (
	"encoding/binary"
	"fmt"
)

// Service is one network-service record.
type Service struct {
	Name    string
	Port    uint16
	Proto   string
	Aliases []string
}

// serviceNameKey and servicePortKey derive the tagged lookup keys for a
// service. Services are
// looked up by (name, proto) or by (port, proto); proto participates in
// the key because e.g. domain/tcp and domain/udp are distinct records.
func serviceNameKey(name, proto string) []byte {
	k := make([]byte, 0, 1+len(name)+1+len(proto))
	k = append(k, tagName)
	k = append(k, name...)
	k = append(k, 0)

	return append(k, proto...)
}

func servicePortKey(port uint16, proto string) []byte {
	k := make([]byte, 0, 3+1+len(proto))
	k = append(k, tagID)
	k = binary.BigEndian.AppendUint16(k, port)
	k = append(k, 0)

	return append(k, proto...)
}

// ServiceNameKey returns the lookup key for a service by name and proto.
func ServiceNameKey(name, proto string) []byte {
	return serviceNameKey(name, proto)
}

// ServicePortKey returns the lookup key for a service by port and proto.
func ServicePortKey(port uint16, proto string) []byte {
	return servicePortKey(port, proto)
}

// encodeServices serializes a [Service] under its name key, its port key,
// and one name key per alias.
func encodeServices(wi *WriteInfo, rec any) error {
	sv, ok := rec.(Service)
	if !ok {
		return fmt.Errorf("services encoder got %T: %w", rec, ErrBadRecord)
	}

	if len(sv.Aliases) > 0xFF {
		return fmt.Errorf("service %q has %d aliases: %w", sv.Name, len(sv.Aliases), ErrBadRecord)
	}

	buf := wi.Scratch[:0]

	var err error

	if buf, err = appendString1(buf, sv.Name); err != nil {
		return err
	}

	buf = binary.BigEndian.AppendUint16(buf, sv.Port)

	if buf, err = appendString1(buf, sv.Proto); err != nil {
		return err
	}

	buf = append(buf, byte(len(sv.Aliases)))

	for _, alias := range sv.Aliases {
		if buf, err = appendString1(buf, alias); err != nil {
			return err
		}
	}

	wi.Scratch = buf
	wi.Value = buf

	keys := [][]byte{serviceNameKey(sv.Name, sv.Proto), servicePortKey(sv.Port, sv.Proto)}
	for _, alias := range sv.Aliases {
		keys = append(keys, serviceNameKey(alias, sv.Proto))
	}

	for _, key := range keys {
		wi.Key = key

		if err := wi.Insert(wi.Key, wi.Value); err != nil {
			return err
		}
	}

	return nil
}

// parseServices inverts encodeServices.
func parseServices(value []byte) (any, error) {
	var (
		sv  Service
		pos int
		err error
	)

	if sv.Name, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pos+2 > len(value) {
		return nil, fmt.Errorf("truncated port at %d: %w", pos, ErrBadRecord)
	}

	sv.Port = binary.BigEndian.Uint16(value[pos:])
	pos += 2

	if sv.Proto, pos, err = readString1(value, pos); err != nil {
		return nil, err
	}

	if pos >= len(value) {
		return nil, fmt.Errorf("truncated alias count at %d: %w", pos, ErrBadRecord)
	}

	naliases := int(value[pos])
	pos++

	if naliases > 0 {
		sv.Aliases = make([]string, 0, naliases)
	}

	for range naliases {
		var alias string

		if alias, pos, err = readString1(value, pos); err != nil {
			return nil, err
		}

		sv.Aliases = append(sv.Aliases, alias)
	}

	if pos != len(value) {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(value)-pos, ErrBadRecord)
	}

	return sv, nil
}
