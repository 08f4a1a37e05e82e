package mcdb

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Map is one live version of a memory-mapped database file.
//
// Versions form a singly-linked chain: when the on-disk file is replaced
// and reopened, the new version is published as the successor of the
// current one. A version is unmapped when its reference count reaches zero
// AND it has a successor; the newest version is never unmapped while it is
// current.
//
// A Map must be obtained via [Open] or [OpenFile]; the zero value is not
// usable.
type Map struct {
	_ [0]func() // prevent external construction

	data []byte // mmap'd file image, read-only MAP_SHARED
	size uint64

	refs       [Slots]slotRef // decoded directory
	recordsEnd uint64         // offset of the first hash table

	// Identity of the mapped file, for staleness detection.
	mtim unix.Timespec
	dev  uint64
	ino  uint64

	refcnt atomic.Int32
	next   atomic.Pointer[Map] // successor version, nil while current

	// noUnmap marks a version whose caller took over unmapping (released
	// with [MunmapSkip]). Guarded by the chain mutex.
	noUnmap bool

	chain *chain
}

// readAheadWindow is the mmap read-ahead hint applied on open.
const readAheadWindow = 512 << 10

// chain is state shared by every version of one database: the directory
// fd and basename used for stat-by-name, and the mutex guarding the
// free-iff-zero-and-superseded transition.
type chain struct {
	mu       sync.Mutex
	dirfd    int
	basename string
}

// Open memory-maps the database file basename inside dir.
//
// The directory fd is kept open for the lifetime of the version chain so
// replacement files can be detected and reopened by name; the data fd is
// closed once the mapping exists. The returned Map carries one reference
// owned by the caller.
func Open(dir, basename string) (*Map, error) {
	dirfd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open directory %s: %w", dir, err)
	}

	ch := &chain{dirfd: dirfd, basename: basename}

	m, err := ch.openMap()
	if err != nil {
		_ = unix.Close(dirfd)

		return nil, err
	}

	m.refcnt.Store(1)

	return m, nil
}

// OpenFile memory-maps an already-open database file.
//
// This separates the filesystem step from the mmap step so fixtures can
// pre-open descriptors. The file's fd may be closed by the caller after
// OpenFile returns. A Map opened this way has no directory fd, so
// [Map.RefreshCheck] always reports false and [Map.Reopen] fails with
// [ErrNoDirectory].
func OpenFile(f *os.File) (*Map, error) {
	m := &Map{chain: &chain{dirfd: -1}}

	if err := m.init(int(f.Fd())); err != nil {
		return nil, err
	}

	m.refcnt.Store(1)

	return m, nil
}

// openMap opens basename relative to the chain's directory fd and maps it.
func (ch *chain) openMap() (*Map, error) {
	fd, err := unix.Openat(ch.dirfd, ch.basename, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ch.basename, err)
	}

	m := &Map{chain: ch}

	if err := m.init(fd); err != nil {
		_ = unix.Close(fd)

		return nil, err
	}

	// The mapping holds the pages; only the directory fd is needed from
	// here on.
	_ = unix.Close(fd)

	return m, nil
}

// init maps the open file descriptor and validates the directory.
func (m *Map) init(fd int) error {
	var st unix.Stat_t

	if err := unix.Fstat(fd, &st); err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if st.Size < HeaderSize {
		return fmt.Errorf("file size %d below directory size %d: %w", st.Size, HeaderSize, ErrCorrupt)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}

	// Prime the directory and the hot front of the file; the window must
	// exceed the directory size.
	ahead := len(data)
	if ahead > readAheadWindow {
		ahead = readAheadWindow
	}

	_ = unix.Madvise(data[:ahead], unix.MADV_WILLNEED)

	m.data = data
	m.size = uint64(st.Size)
	m.mtim = st.Mtim
	m.dev = uint64(st.Dev) //nolint:unconvert // Dev is int32 on some platforms
	m.ino = st.Ino

	if err := m.readDirectory(); err != nil {
		_ = unix.Munmap(m.data)
		m.data = nil

		return err
	}

	return nil
}

// readDirectory decodes the 256 directory slots and validates that every
// referenced hash table lies inside the mapped image. recordsEnd is the
// lowest table offset, which is where the record region stops.
func (m *Map) readDirectory() error {
	end := m.size

	for i := range m.refs {
		off := be64(m.data[i*16:])
		count := be64(m.data[i*16+8:])

		tblBytes := count * entrySize
		if count != 0 && tblBytes/entrySize != count {
			return fmt.Errorf("slot %d: table length %d overflows: %w", i, count, ErrCorrupt)
		}

		if off < HeaderSize || off%8 != 0 || off+tblBytes < off || off+tblBytes > m.size {
			return fmt.Errorf("slot %d: table [%d,+%d) outside file of %d bytes: %w",
				i, off, tblBytes, m.size, ErrCorrupt)
		}

		if off < end {
			end = off
		}

		m.refs[i] = slotRef{off: off, count: count}
	}

	m.recordsEnd = end

	return nil
}

// Size returns the byte length of the mapped image.
func (m *Map) Size() uint64 {
	return m.size
}

// Read copies the byte range [pos, pos+len(p)) of the mapped image into p.
//
// Use this when an owned copy is wanted; [Cursor.Value] gives zero-copy
// access instead. A range outside the map is a structural error.
func (m *Map) Read(p []byte, pos uint64) error {
	if m.data == nil {
		return ErrClosed
	}

	end := pos + uint64(len(p))
	if end < pos || end > m.size {
		return fmt.Errorf("read [%d,+%d) outside map of %d bytes: %w", pos, len(p), m.size, ErrCorrupt)
	}

	copy(p, m.data[pos:end])

	return nil
}

// RefreshCheck stats the database file by name relative to the retained
// directory fd and reports whether its identity (mtime, device, inode)
// differs from the mapped version.
//
// A failed stat (file temporarily gone mid-replacement) is treated as "no
// change" to avoid churn. This is the only read-path operation that
// touches the filesystem, and only when the caller opts into checks.
func (m *Map) RefreshCheck() bool {
	ch := m.chain
	if ch.dirfd < 0 {
		return false
	}

	var st unix.Stat_t

	if err := unix.Fstatat(ch.dirfd, ch.basename, &st, 0); err != nil {
		return false
	}

	return st.Mtim != m.mtim || uint64(st.Dev) != m.dev || st.Ino != m.ino //nolint:unconvert
}

// Reopen maps the replacement file and publishes it as the successor of
// the newest version in m's chain. It must only be called after a
// positive [Map.RefreshCheck].
//
// Publication is a compare-and-swap of the newest version's successor
// pointer; if another reader publishes first, the speculative mapping is
// retired and the winner is returned. On mmap failure the current version
// is left untouched and the error is returned.
func (m *Map) Reopen() (*Map, error) {
	ch := m.chain
	if ch.dirfd < 0 {
		return nil, ErrNoDirectory
	}

	// A concurrent refresher may have published already. Only map the
	// file if the newest version is itself stale; the CAS below then
	// admits a single publisher per version even if two refreshers pass
	// this check together.
	newest := m.newest()
	if !newest.RefreshCheck() {
		return newest, nil
	}

	nm, err := ch.openMap()
	if err != nil {
		return nil, err
	}

	if !newest.next.CompareAndSwap(nil, nm) {
		// Lost the publish race. Retire the speculative mapping and use
		// the winner's.
		_ = unix.Munmap(nm.data)
		nm.data = nil

		return newest.newest(), nil
	}

	return nm, nil
}

// newest walks successor pointers to the current version.
func (m *Map) newest() *Map {
	for {
		next := m.next.Load()
		if next == nil {
			return m
		}

		m = next
	}
}

// Close unmaps this version and closes the chain's directory fd.
//
// Close is for final teardown by the owner of the last reference; readers
// registered on the chain release their references with [Register] or
// [Map.Release] instead, which unmap superseded versions automatically.
// Close is idempotent.
func (m *Map) Close() error {
	ch := m.chain

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if m.data != nil {
		_ = unix.Munmap(m.data)
		m.data = nil
	}

	if ch.dirfd >= 0 {
		_ = unix.Close(ch.dirfd)
		ch.dirfd = -1
	}

	return nil
}
