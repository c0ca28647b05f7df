package messengerfs

import (
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// LookUp resolves name within parent, returning the child's inode
// number and current attributes.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) LookUp(parent tree.Idx, name string) (tree.Idx, fsentry.FileAttr, error) {
	idx, entry, err := fs.lookupChild(parent, name)
	if err != nil {
		return 0, fsentry.FileAttr{}, err
	}
	return idx, entry.Attr, nil
}

// GetAttr returns the current attributes of inode.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) GetAttr(inode tree.Idx) fsentry.FileAttr {
	return fs.getEntryOrDie(inode).Attr
}

// SetAttrRequest carries the subset of attributes a setattr call may
// change; nil fields are left untouched, mirroring fuseops.SetInodeAttributesOp's
// optional-pointer fields.
type SetAttrRequest struct {
	Size  *uint64
	Perm  *uint32
	Atime *fsentry.Timespec
	Mtime *fsentry.Timespec
	Uid   *uint32
	Gid   *uint32
}

// SetAttr applies req to inode and returns its resulting attributes. A
// Size change on a regular file truncates or zero-extends its extent
// list to match, allocating fresh blocks for any extension.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) SetAttr(inode tree.Idx, req SetAttrRequest) (fsentry.FileAttr, error) {
	entry := fs.getEntryOrDie(inode)

	if req.Perm != nil {
		entry.Attr.Perm = *req.Perm
	}
	if req.Uid != nil {
		entry.Attr.Uid = *req.Uid
	}
	if req.Gid != nil {
		entry.Attr.Gid = *req.Gid
	}
	if req.Atime != nil {
		entry.Attr.Atime = *req.Atime
	}
	if req.Mtime != nil {
		entry.Attr.Mtime = *req.Mtime
	}

	if req.Size != nil {
		if err := fs.truncate(entry, *req.Size); err != nil {
			return fsentry.FileAttr{}, err
		}
	}

	entry.Attr.Ctime = fsentry.FromTime(fs.clock.Now())
	return entry.Attr, nil
}

// truncate resizes entry's logical length to size, dropping trailing
// extents past size or padding with a freshly allocated zero-filled
// extent when growing.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) truncate(entry *fsentry.FileSystemEntry, size uint64) error {
	current := entry.Size()

	switch {
	case size == current:
		return nil

	case size < current:
		var kept []fsentry.DataLoc
		var runningOffset uint64
		for _, loc := range entry.Data {
			if runningOffset >= size {
				break
			}
			remaining := size - runningOffset
			if loc.Size > remaining {
				loc.Size = remaining
			}
			kept = append(kept, loc)
			runningOffset += loc.Size
		}
		entry.Data = kept
		entry.Attr.Size = size
		return nil

	default:
		grow := size - current
		zeros := make([]byte, grow)
		locs, err := fs.blocks.Alloc(zeros)
		if err != nil {
			return err
		}
		entry.Data = append(entry.Data, locs...)
		entry.Attr.Size = size
		return nil
	}
}

// Forget is a no-op placeholder for fuseops.ForgetInodeOp: this engine
// never evicts metadata for inodes with Nlink > 0, since the whole tree
// is held in memory and snapshotted whole. It exists so
// internal/fuseadapter has a symmetric call for every op the kernel
// sends.
func (fs *MessengerFS) Forget(inode tree.Idx, n uint64) {
	_ = inode
	_ = n
}
