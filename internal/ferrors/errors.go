// Package ferrors defines the sentinel error values shared by
// internal/block and internal/messengerfs, and mapped onto POSIX errno
// values by internal/fuseadapter. Keeping them in their own package
// (rather than on messengerfs) avoids a dependency cycle: internal/block
// needs to return Exhausted without importing the engine package that
// imports internal/block.
package ferrors

import "errors"

var (
	// NotFound is returned when a lookup, inode, or block reference
	// doesn't resolve to anything live.
	NotFound = errors.New("messengerfs: not found")

	// Exhausted is returned when a write would require allocating a
	// block beyond the pool's configured max_num_blocks.
	Exhausted = errors.New("messengerfs: block pool exhausted")

	// IoFailed marks a remote messenger call (upload, download, post)
	// that failed. Call sites wrap IoFailed itself with fmt.Errorf's %w
	// and include the underlying error's text with %v, so
	// errors.Is(err, IoFailed) holds but the underlying error cannot be
	// unwrapped.
	IoFailed = errors.New("messengerfs: remote io failed")

	// Fatal signals a broken invariant that cannot be recovered from
	// in-process — e.g. a dirty block at snapshot time, or a block
	// upload whose message came back with no attachment.
	Fatal = errors.New("messengerfs: fatal internal error")
)
