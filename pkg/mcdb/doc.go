// Package mcdb reads constant, memory-mapped key/value databases.
//
// An mcdb file is built once by [github.com/haguenau/mcdb/pkg/mcdbmake] and
// then served to any number of concurrent readers through a single read-only
// memory map. Lookups are hash probes against the mapped image and never
// perform I/O; the only system calls on the read path are the optional
// staleness checks a caller opts into.
//
// # Basic Usage
//
//	m, err := mcdb.Open("/var/db", "services.mcdb")
//	if err != nil {
//	    // handle open/mmap failures, or [ErrCorrupt] for a damaged file
//	}
//	defer m.Close()
//
//	c := mcdb.NewCursor(m)
//	found, err := c.Find([]byte("http"))
//	if found {
//	    value := c.Value() // borrowed from the map, valid until release
//	}
//
// Duplicate keys are permitted; FindStart/FindNext enumerate all values for
// a key in the order the builder inserted them.
//
// # Live refresh
//
// A builder replaces a database by writing a new file and renaming it over
// the old name. Long-lived readers pick the replacement up without blocking
// each other: [Map.RefreshCheck] detects the swap by file identity,
// [Map.Reopen] maps the new file and links it as the successor of the
// current version, and [Register] moves a reader's reference to the newest
// version. A superseded version is unmapped when its last reader releases
// it; the current version is never unmapped while it is current.
//
// # Concurrency
//
// All methods on [Map] and all cursor operations are safe for concurrent
// readers. A [Cursor] itself is single-threaded state; create one per
// lookup or per goroutine.
package mcdb
