package mcdb

// Export internal state for testing.
// This file is only compiled during tests.

// RefcountForTesting returns a version's current reference count.
func RefcountForTesting(m *Map) int32 {
	return m.refcnt.Load()
}

// MappedForTesting reports whether the version's image is still mapped.
func MappedForTesting(m *Map) bool {
	return m.data != nil
}

// SupersededForTesting reports whether the version has a successor.
func SupersededForTesting(m *Map) bool {
	return m.next.Load() != nil
}

// ChainForTesting returns the version chain starting at m, oldest first.
func ChainForTesting(m *Map) []*Map {
	var nodes []*Map

	for n := m; n != nil; n = n.next.Load() {
		nodes = append(nodes, n)
	}

	return nodes
}

// RecordsEndForTesting returns the offset of the first hash table.
func RecordsEndForTesting(m *Map) uint64 {
	return m.recordsEnd
}
