package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// The textual record format, compatible with cdbmake input:
//
//	+klen,vlen:key->value\n
//
// repeated once per record and terminated by a final newline. dump emits
// the same format, so dump|make round-trips a database.

var errRecFormat = errors.New("malformed record line")

// readRecords parses the textual record stream, invoking add for each
// (key, value) pair.
func readRecords(r io.Reader, add func(key, value []byte) error) error {
	br := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if c == '\n' {
			// Terminating blank line; anything after it is ignored.
			return nil
		}

		if c != '+' {
			return fmt.Errorf("line %d: expected '+', got %q: %w", lineNo, c, errRecFormat)
		}

		klen, err := readLength(br, ',')
		if err != nil {
			return fmt.Errorf("line %d: key length: %w", lineNo, err)
		}

		vlen, err := readLength(br, ':')
		if err != nil {
			return fmt.Errorf("line %d: value length: %w", lineNo, err)
		}

		key := make([]byte, klen)
		if _, err := io.ReadFull(br, key); err != nil {
			return fmt.Errorf("line %d: key: %w", lineNo, err)
		}

		if err := expect(br, "->"); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		value := make([]byte, vlen)
		if _, err := io.ReadFull(br, value); err != nil {
			return fmt.Errorf("line %d: value: %w", lineNo, err)
		}

		if err := expect(br, "\n"); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		if err := add(key, value); err != nil {
			return err
		}
	}
}

// readLength reads a decimal length up to the given terminator.
func readLength(br *bufio.Reader, term byte) (int, error) {
	var (
		n      int
		digits int
	)

	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}

		if c == term {
			if digits == 0 {
				return 0, errRecFormat
			}

			return n, nil
		}

		if c < '0' || c > '9' {
			return 0, fmt.Errorf("unexpected %q: %w", c, errRecFormat)
		}

		digits++
		if digits > 10 {
			return 0, fmt.Errorf("length too long: %w", errRecFormat)
		}

		n = n*10 + int(c-'0')
	}
}

func expect(br *bufio.Reader, s string) error {
	for i := range len(s) {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}

		if c != s[i] {
			return fmt.Errorf("expected %q, got %q: %w", s, c, errRecFormat)
		}
	}

	return nil
}

// writeRecord emits one record in the textual format.
func writeRecord(w io.Writer, key, value []byte) error {
	if _, err := fmt.Fprintf(w, "+%d,%d:%s->%s\n", len(key), len(value), key, value); err != nil {
		return err
	}

	return nil
}
