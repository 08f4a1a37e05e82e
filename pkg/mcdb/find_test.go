package mcdb_test

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/haguenau/mcdb/pkg/mcdb"
	"github.com/haguenau/mcdb/pkg/mcdbmake"
)

type pair struct {
	key   string
	value string
}

// buildDB builds a database from pairs and publishes it at dir/base.
func buildDB(t *testing.T, dir, base string, pairs []pair) {
	t.Helper()

	mk := mcdbmake.New(len(pairs))

	for _, p := range pairs {
		if err := mk.Add([]byte(p.key), []byte(p.value)); err != nil {
			t.Fatalf("Add(%q): %v", p.key, err)
		}
	}

	if err := mk.Create(filepath.Join(dir, base)); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

// openDB builds and opens a database, closing it on test cleanup.
func openDB(t *testing.T, pairs []pair) *mcdb.Map {
	t.Helper()

	dir := t.TempDir()
	buildDB(t, dir, "test.mcdb", pairs)

	m, err := mcdb.Open(dir, "test.mcdb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Cleanup(func() { _ = m.Close() })

	return m
}

func Test_Find_Returns_NotFound_When_Database_Is_Empty(t *testing.T) {
	t.Parallel()

	m := openDB(t, nil)

	if m.Size() != mcdb.HeaderSize {
		t.Fatalf("empty database size = %d, want %d", m.Size(), mcdb.HeaderSize)
	}

	c := mcdb.NewCursor(m)

	found, err := c.Find([]byte("x"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	if found {
		t.Fatal("Find on empty database must report not-found")
	}
}

func Test_Find_Returns_Value_When_Single_Entry_Matches(t *testing.T) {
	t.Parallel()

	m := openDB(t, []pair{{"key", "value"}})

	c := mcdb.NewCursor(m)

	found, err := c.Find([]byte("key"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	if !found {
		t.Fatal("Find must locate the record")
	}

	if _, dlen := c.ValuePos(); dlen != 5 {
		t.Fatalf("dlen = %d, want 5", dlen)
	}

	if string(c.Value()) != "value" {
		t.Fatalf("value = %q, want %q", c.Value(), "value")
	}

	if got := c.ValueCopy(); string(got) != "value" {
		t.Fatalf("ValueCopy = %q, want %q", got, "value")
	}
}

func Test_FindNext_Yields_Duplicates_In_Insertion_Order(t *testing.T) {
	t.Parallel()

	m := openDB(t, []pair{{"k", "a"}, {"k", "b"}, {"k", "c"}})

	key := []byte("k")
	c := mcdb.NewCursor(m)
	c.FindStart(key)

	for _, want := range []string{"a", "b", "c"} {
		found, err := c.FindNext(key)
		if err != nil {
			t.Fatalf("FindNext: %v", err)
		}

		if !found {
			t.Fatalf("FindNext must find duplicate %q", want)
		}

		if string(c.Value()) != want {
			t.Fatalf("value = %q, want %q", c.Value(), want)
		}
	}

	found, err := c.FindNext(key)
	if err != nil {
		t.Fatalf("FindNext: %v", err)
	}

	if found {
		t.Fatal("fourth FindNext must report not-found")
	}
}

func Test_Find_Distinguishes_Keys_Sharing_A_Slot(t *testing.T) {
	t.Parallel()

	// "hello" and "world" hash into the same directory slot with different
	// full hashes; each lookup must return its own value from the shared
	// table.
	m := openDB(t, []pair{{"hello", "1"}, {"world", "2"}, {"other", "3"}})

	for key, want := range map[string]string{"hello": "1", "world": "2", "other": "3"} {
		c := mcdb.NewCursor(m)

		found, err := c.Find([]byte(key))
		if err != nil {
			t.Fatalf("Find(%q): %v", key, err)
		}

		if !found {
			t.Fatalf("Find(%q) must locate the record", key)
		}

		if string(c.Value()) != want {
			t.Fatalf("value for %q = %q, want %q", key, c.Value(), want)
		}
	}
}

func Test_Find_Distinguishes_Keys_With_Identical_Hashes(t *testing.T) {
	t.Parallel()

	// slumffic and voagridm collide on the full 32-bit hash, so lookups
	// must fall through to the key-byte comparison.
	m := openDB(t, []pair{{"slumffic", "first"}, {"voagridm", "second"}})

	for key, want := range map[string]string{"slumffic": "first", "voagridm": "second"} {
		c := mcdb.NewCursor(m)

		found, err := c.Find([]byte(key))
		if err != nil {
			t.Fatalf("Find(%q): %v", key, err)
		}

		if !found {
			t.Fatalf("Find(%q) must locate the record", key)
		}

		if string(c.Value()) != want {
			t.Fatalf("value for %q = %q, want %q", key, c.Value(), want)
		}
	}
}

func Test_Find_Returns_Large_Value_Intact(t *testing.T) {
	t.Parallel()

	large := bytes.Repeat([]byte{0xAB}, 1<<20)

	dir := t.TempDir()

	mk := mcdbmake.New(1)
	if err := mk.Add([]byte("big"), large); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := mk.Create(filepath.Join(dir, "big.mcdb")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m, err := mcdb.Open(dir, "big.mcdb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer func() { _ = m.Close() }()

	c := mcdb.NewCursor(m)

	found, err := c.Find([]byte("big"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	if !found {
		t.Fatal("Find must locate the record")
	}

	if _, dlen := c.ValuePos(); dlen != 1<<20 {
		t.Fatalf("dlen = %d, want %d", dlen, 1<<20)
	}

	if !bytes.Equal(c.Value(), large) {
		t.Fatal("value bytes differ from input")
	}
}

func Test_Probe_Count_Never_Exceeds_Table_Length(t *testing.T) {
	t.Parallel()

	pairs := make([]pair, 0, 1000)
	for i := range 1000 {
		pairs = append(pairs, pair{fmt.Sprintf("key-%04d", i), fmt.Sprintf("value-%04d", i)})
	}

	m := openDB(t, pairs)

	for _, p := range pairs {
		c := mcdb.NewCursor(m)

		found, err := c.Find([]byte(p.key))
		if err != nil {
			t.Fatalf("Find(%q): %v", p.key, err)
		}

		if !found {
			t.Fatalf("Find(%q) must locate the record", p.key)
		}

		// The per-slot table holds twice as many entries as records, so
		// the probe count is bounded by the table length and, on this
		// uniform keyset, is nearly always tiny.
		if c.Probes() > 2000 {
			t.Fatalf("Find(%q) probed %d entries", p.key, c.Probes())
		}
	}

	// Absent keys also terminate within the bound.
	for i := range 100 {
		key := []byte(fmt.Sprintf("absent-%04d", i))
		c := mcdb.NewCursor(m)

		found, err := c.Find(key)
		if err != nil {
			t.Fatalf("Find(%q): %v", key, err)
		}

		if found {
			t.Fatalf("Find(%q) must report not-found", key)
		}
	}
}

func Test_Read_Copies_Value_And_Rejects_Out_Of_Bounds(t *testing.T) {
	t.Parallel()

	m := openDB(t, []pair{{"key", "value"}})

	c := mcdb.NewCursor(m)

	found, err := c.Find([]byte("key"))
	if err != nil || !found {
		t.Fatalf("Find: found=%v err=%v", found, err)
	}

	pos, dlen := c.ValuePos()

	buf := make([]byte, dlen)
	if err := m.Read(buf, pos); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(buf) != "value" {
		t.Fatalf("Read copied %q, want %q", buf, "value")
	}

	if err := m.Read(make([]byte, 10), m.Size()-5); !errors.Is(err, mcdb.ErrCorrupt) {
		t.Fatalf("out-of-bounds Read must return ErrCorrupt, got %v", err)
	}
}

func Test_Roundtrip_Retrieves_Every_Inserted_Pair(t *testing.T) {
	t.Parallel()

	pairs := make([]pair, 0, 300)
	for i := range 300 {
		pairs = append(pairs, pair{fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i)})
	}

	m := openDB(t, pairs)

	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}

	for _, p := range pairs {
		c := mcdb.NewCursor(m)

		found, err := c.Find([]byte(p.key))
		if err != nil {
			t.Fatalf("Find(%q): %v", p.key, err)
		}

		if !found || string(c.Value()) != p.value {
			t.Fatalf("Find(%q) = (%v, %q), want (true, %q)", p.key, found, c.Value(), p.value)
		}
	}
}
