package mcdb

import "errors"

// Error classification.
//
// Open and mmap failures surface as wrapped syscall errors. Callers MUST
// classify errors with errors.Is; additional context may be wrapped around
// these sentinels.
var (
	// ErrCorrupt indicates a structural read outside the mapped region or
	// an impossible record header. Non-retriable: rebuild the database.
	ErrCorrupt = errors.New("mcdb: corrupt")

	// ErrClosed indicates the map has been unmapped.
	ErrClosed = errors.New("mcdb: closed")

	// ErrNoDirectory indicates an operation that needs the database's
	// directory fd (refresh, reopen) on a map opened from a bare file.
	ErrNoDirectory = errors.New("mcdb: no directory fd")
)
