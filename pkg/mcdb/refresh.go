package mcdb

import "golang.org/x/sys/unix"

// RegisterFlags adjusts how [Register] manipulates a reader's reference.
//
// The zero value ([UseIncr]) acquires a reference on the newest version.
// The bit values are fixed for compatibility with existing cross-language
// callers of the format.
type RegisterFlags uint32

const (
	// UseIncr acquires a reference on the newest version of the chain and
	// rewrites the caller's pointer to it. The default.
	UseIncr RegisterFlags = 0

	// UseDecr releases the caller's reference instead; the version is
	// unmapped iff its count reaches zero and it has been superseded.
	UseDecr RegisterFlags = 1

	// MunmapSkip releases without ever unmapping. For callers that will
	// unmap the region themselves, e.g. during shutdown via [Map.Close].
	MunmapSkip RegisterFlags = 2

	// LockHold advises that the chain mutex is already held by the
	// caller at entry; Register must not re-enter it.
	LockHold RegisterFlags = 4

	// UnlockHold advises that the chain mutex should remain held when
	// Register returns; the caller will release it.
	UnlockHold RegisterFlags = 8
)

// Register moves a reader's registration along the version chain.
//
// With [UseIncr], it walks successor pointers from *mapp to the newest
// version, increments that version's reference count, and rewrites *mapp.
// If the pointer moved, the reference previously held through *mapp is
// released. With [UseDecr], the reference held through *mapp is released
// and *mapp is set to nil.
//
// Releasing the last reference to a superseded version unmaps it; the
// newest version is never unmapped here regardless of its count.
//
// The caller's pointer must hold a registered reference (or be freshly
// acquired via [Map.Acquire]). Registering readers that merely copied
// someone else's pointer must use [Map.Acquire] instead, which does not
// release anything.
func Register(mapp **Map, flags RegisterFlags) {
	m := *mapp
	ch := m.chain

	if flags&LockHold == 0 {
		ch.mu.Lock()
	}

	if flags&UseDecr == 0 {
		newest := ch.walkNewest(m)
		newest.refcnt.Add(1)

		if newest != m {
			ch.release(m, flags&MunmapSkip != 0)
			*mapp = newest
		}
	} else {
		ch.release(m, flags&MunmapSkip != 0)
		*mapp = nil
	}

	if flags&UnlockHold == 0 {
		ch.mu.Unlock()
	}
}

// Acquire registers a new reader: it walks to the newest version
// reachable from m, increments its reference count, and returns it.
//
// Pair every Acquire with a [Map.Release] (or a [Register] call with
// [UseDecr]). Unlike [Register], Acquire releases nothing, so it is the
// correct entry point for a reader whose pointer was copied from a shared
// handle rather than registered.
func (m *Map) Acquire() *Map {
	ch := m.chain

	ch.mu.Lock()
	newest := ch.walkNewest(m)
	newest.refcnt.Add(1)
	ch.mu.Unlock()

	return newest
}

// walkNewest advances to the newest version, retiring any superseded
// zero-reference versions passed on the way. Such versions exist when a
// publish raced a re-registration and nobody ever acquired them; readers
// can only register on the newest version, so unmapping them here is
// safe. The chain mutex must be held.
func (ch *chain) walkNewest(m *Map) *Map {
	for {
		next := m.next.Load()
		if next == nil {
			return m
		}

		if m.refcnt.Load() == 0 && !m.noUnmap && m.data != nil {
			_ = unix.Munmap(m.data)
			m.data = nil
		}

		m = next
	}
}

// Release drops the reference acquired by [Map.Acquire], unmapping the
// version iff it was the last reference and the version is superseded.
// After Release the map must not be dereferenced through this reference.
func (m *Map) Release() {
	ch := m.chain

	ch.mu.Lock()
	ch.release(m, false)
	ch.mu.Unlock()
}

// Refresh makes the caller's registration current.
//
// If the on-disk file still matches the registered version, Refresh is a
// no-op and reports true. If a replacement is detected, the new file is
// mapped (or an already-published successor is used), and the caller's
// reference moves to the newest version.
//
// Refresh reports false only when a replacement was detected but could
// not be opened or mapped; the caller keeps its current registration and
// can continue serving lookups from it.
func Refresh(mapp **Map) bool {
	m := *mapp

	if !m.RefreshCheck() {
		return true
	}

	if _, err := m.Reopen(); err != nil {
		return false
	}

	Register(mapp, UseIncr)

	return true
}

// release decrements m's reference count and unmaps the version iff the
// count reached zero and the version has a successor. The chain mutex
// must be held: it closes the race between a late release and a refresh
// observing the same version, so the unmap happens exactly once.
func (ch *chain) release(m *Map, skipUnmap bool) {
	if m.refcnt.Add(-1) != 0 {
		return
	}

	if m.next.Load() == nil {
		// Never destroy the current head; its count can only stay at
		// zero until a successor is linked.
		return
	}

	if skipUnmap {
		// The caller unmaps the region itself, via [Map.Close].
		m.noUnmap = true

		return
	}

	if m.data != nil {
		_ = unix.Munmap(m.data)
		m.data = nil
	}
}
