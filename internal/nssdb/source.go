package nssdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Source-file parsing for the flat /etc formats each dataset is
// conventionally maintained in. Blank lines and #-comments are the
// caller's concern; these parse a single significant line.

// ParseSourceLine parses one line of a dataset's flat source format into
// the dataset's record type.
func ParseSourceLine(dataset, line string) (any, error) {
	switch dataset {
	case "passwd":
		return parsePasswdLine(line)
	case "group":
		return parseGroupLine(line)
	case "services":
		return parseServicesLine(line)
	default:
		return nil, fmt.Errorf("no source parser for dataset %q: %w", dataset, ErrBadRecord)
	}
}

// parsePasswdLine parses "name:password:uid:gid:gecos:dir:shell".
func parsePasswdLine(line string) (any, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 7 {
		return nil, fmt.Errorf("passwd line has %d fields, want 7: %w", len(fields), ErrBadRecord)
	}

	uid, err := parseID(fields[2])
	if err != nil {
		return nil, fmt.Errorf("uid: %w", err)
	}

	gid, err := parseID(fields[3])
	if err != nil {
		return nil, fmt.Errorf("gid: %w", err)
	}

	return Passwd{
		Name:  fields[0],
		UID:   uid,
		GID:   gid,
		Gecos: fields[4],
		Dir:   fields[5],
		Shell: fields[6],
	}, nil
}

// parseGroupLine parses "name:password:gid:member,member".
func parseGroupLine(line string) (any, error) {
	fields := strings.Split(line, ":")
	if len(fields) != 4 {
		return nil, fmt.Errorf("group line has %d fields, want 4: %w", len(fields), ErrBadRecord)
	}

	gid, err := parseID(fields[2])
	if err != nil {
		return nil, fmt.Errorf("gid: %w", err)
	}

	var members []string
	if fields[3] != "" {
		members = strings.Split(fields[3], ",")
	}

	return Group{Name: fields[0], GID: gid, Members: members}, nil
}

// parseServicesLine parses "name port/proto alias...".
func parseServicesLine(line string) (any, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("services line has %d fields, want at least 2: %w", len(fields), ErrBadRecord)
	}

	portStr, proto, ok := strings.Cut(fields[1], "/")
	if !ok {
		return nil, fmt.Errorf("services port %q is not port/proto: %w", fields[1], ErrBadRecord)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("services port %q: %w", portStr, ErrBadRecord)
	}

	var aliases []string
	if len(fields) > 2 {
		aliases = fields[2:]
	}

	return Service{
		Name:    fields[0],
		Port:    uint16(port),
		Proto:   proto,
		Aliases: aliases,
	}, nil
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrBadRecord)
	}

	return uint32(id), nil
}
