package mcdb_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/haguenau/mcdb/pkg/mcdb"
	"github.com/haguenau/mcdb/pkg/mcdbmake"
)

func benchDB(b *testing.B, n int) *mcdb.Map {
	b.Helper()

	dir := b.TempDir()
	mk := mcdbmake.New(n)

	for i := range n {
		key := fmt.Appendf(nil, "key-%08d", i)
		value := fmt.Appendf(nil, "value-%08d", i)

		if err := mk.Add(key, value); err != nil {
			b.Fatalf("Add: %v", err)
		}
	}

	if err := mk.Create(filepath.Join(dir, "bench.mcdb")); err != nil {
		b.Fatalf("Create: %v", err)
	}

	m, err := mcdb.Open(dir, "bench.mcdb")
	if err != nil {
		b.Fatalf("Open: %v", err)
	}

	b.Cleanup(func() { _ = m.Close() })

	return m
}

func BenchmarkFind100k(b *testing.B) {
	m := benchDB(b, 100_000)
	key := []byte("key-00050000")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c := mcdb.NewCursor(m)

		found, err := c.Find(key)
		if err != nil || !found {
			b.Fatalf("Find: found=%v err=%v", found, err)
		}
	}
}

func BenchmarkFindMiss100k(b *testing.B) {
	m := benchDB(b, 100_000)
	key := []byte("key-no-such")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c := mcdb.NewCursor(m)

		found, err := c.Find(key)
		if err != nil || found {
			b.Fatalf("Find: found=%v err=%v", found, err)
		}
	}
}
