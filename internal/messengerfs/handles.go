package messengerfs

import "github.com/davlia-projects/messenger-fs/internal/tree"

// HandleID is a real, allocated file/directory handle, occupying its
// own namespace independent of inode numbers, the way a real kernel's
// file table works and the way jacobsa/fuse's fuseops.HandleID is
// documented to behave.
type HandleID uint64

// handle records what a single open handle refers to and any
// handle-scoped state, currently just the directory listing snapshot
// used to serve paginated ReadDir calls in order.
type handle struct {
	inode tree.Idx
	isDir bool

	// dirSnapshot is the ordered listing captured at first ReadDir call
	// time (., .., then children in child order), so a ReadDir sequence
	// at increasing offsets sees a stable listing even if the directory
	// is mutated mid-iteration.
	dirSnapshot []DirEntry
}

// handleTable allocates and tracks open handles.
type handleTable struct {
	next    HandleID
	entries map[HandleID]*handle
}

func newHandleTable() *handleTable {
	return &handleTable{entries: make(map[HandleID]*handle)}
}

func (t *handleTable) open(inode tree.Idx, isDir bool) HandleID {
	t.next++
	id := t.next
	t.entries[id] = &handle{inode: inode, isDir: isDir}
	return id
}

func (t *handleTable) get(id HandleID) (*handle, bool) {
	h, ok := t.entries[id]
	return h, ok
}

func (t *handleTable) release(id HandleID) {
	delete(t.entries, id)
}
