package messengerfs

import (
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Inode tree.Idx
	Name  string
	Kind  fsentry.FileKind
}

// OpenDir opens inode for listing and returns a handle. The handle
// snapshots the child order on its first ReadDir call, so a sequence of
// ReadDir calls at increasing offsets sees a consistent view even under
// concurrent mutation.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) OpenDir(inode tree.Idx) HandleID {
	return fs.handles.open(inode, true)
}

// ReadDir returns up to limit entries starting at offset within the
// handle's snapshotted listing. A zero-length result means the listing
// is exhausted.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) ReadDir(h HandleID, offset int, limit int) ([]DirEntry, error) {
	hd, ok := fs.handles.get(h)
	if !ok || !hd.isDir {
		return nil, errBadHandle
	}

	if hd.dirSnapshot == nil {
		node := fs.tree.Get(hd.inode)

		parent := hd.inode
		if node.Parent != nil {
			parent = *node.Parent
		}

		hd.dirSnapshot = make([]DirEntry, 0, len(node.Children)+2)
		hd.dirSnapshot = append(hd.dirSnapshot,
			DirEntry{Inode: hd.inode, Name: ".", Kind: fsentry.KindDirectory},
			DirEntry{Inode: parent, Name: "..", Kind: fsentry.KindDirectory},
		)
		for _, idx := range node.Children {
			entry := fs.getEntryOrDie(idx)
			hd.dirSnapshot = append(hd.dirSnapshot, DirEntry{Inode: idx, Name: entry.Name, Kind: entry.Attr.Kind})
		}
	}

	if offset >= len(hd.dirSnapshot) {
		return nil, nil
	}

	end := offset + limit
	if end > len(hd.dirSnapshot) {
		end = len(hd.dirSnapshot)
	}

	out := make([]DirEntry, end-offset)
	copy(out, hd.dirSnapshot[offset:end])
	return out, nil
}

// ReleaseDirHandle releases a handle opened by OpenDir.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) ReleaseDirHandle(h HandleID) {
	fs.handles.release(h)
}
