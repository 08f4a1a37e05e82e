package mcdb_test

import (
	"fmt"
	"testing"
)

func Test_Records_Walks_Pairs_In_File_Order(t *testing.T) {
	t.Parallel()

	pairs := []pair{{"one", "1"}, {"two", "2"}, {"two", "2-again"}, {"three", "3"}}
	m := openDB(t, pairs)

	i := 0

	for key, value := range m.Records() {
		if i >= len(pairs) {
			t.Fatalf("iterator yielded more than %d records", len(pairs))
		}

		if string(key) != pairs[i].key || string(value) != pairs[i].value {
			t.Fatalf("record %d = (%q, %q), want (%q, %q)", i, key, value, pairs[i].key, pairs[i].value)
		}

		i++
	}

	if i != len(pairs) {
		t.Fatalf("iterator yielded %d records, want %d", i, len(pairs))
	}
}

func Test_Records_Yields_Nothing_For_Empty_Database(t *testing.T) {
	t.Parallel()

	m := openDB(t, nil)

	for key, value := range m.Records() {
		t.Fatalf("unexpected record (%q, %q) in empty database", key, value)
	}
}

func Test_Records_Supports_Early_Termination(t *testing.T) {
	t.Parallel()

	pairs := make([]pair, 10)
	for i := range pairs {
		pairs[i] = pair{fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i)}
	}

	m := openDB(t, pairs)

	n := 0

	for range m.Records() {
		n++
		if n == 3 {
			break
		}
	}

	if n != 3 {
		t.Fatalf("walked %d records, want 3", n)
	}
}

func Test_Check_Accepts_Well_Formed_Databases(t *testing.T) {
	t.Parallel()

	for _, pairs := range [][]pair{
		nil,
		{{"k", "v"}},
		{{"k", "a"}, {"k", "b"}, {"hello", "x"}, {"world", "y"}},
	} {
		m := openDB(t, pairs)

		if err := m.Check(); err != nil {
			t.Fatalf("Check on %d pairs: %v", len(pairs), err)
		}
	}
}
