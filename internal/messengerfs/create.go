package messengerfs

import (
	"github.com/davlia-projects/messenger-fs/internal/ferrors"
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// ErrExists is returned when a create/mkdir/symlink call targets a name
// that already exists in the parent directory.
var ErrExists = errAlreadyExists{}

type errAlreadyExists struct{}

func (errAlreadyExists) Error() string { return "messengerfs: name already exists" }

// newAttr stamps a freshly allocated entry's timestamps from the clock,
// the same now := fs.clock.Now(); {Atime,Mtime,Ctime,Crtime}: now pattern
// an in-memory sample filesystem uses in CreateFile/MkDir/CreateSymlink.
func (fs *MessengerFS) newAttr(kind fsentry.FileKind, perm uint32, uid, gid uint32) fsentry.FileAttr {
	now := fsentry.FromTime(fs.clock.Now())
	nlink := uint32(1)
	if kind == fsentry.KindDirectory {
		nlink = 2
	}
	return fsentry.FileAttr{
		Kind:   kind,
		Perm:   perm,
		Nlink:  nlink,
		Uid:    uid,
		Gid:    gid,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
		Crtime: now,
	}
}

// createPerm is the fixed permission bits every created file and
// directory gets. The mode bits a create/mkdir caller requests are
// ignored outright rather than honored.
const createPerm = 0o755

// CreateFile creates a new, empty regular file named name within
// parent, owned by uid/gid.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) CreateFile(parent tree.Idx, name string, uid, gid uint32) (tree.Idx, fsentry.FileAttr, error) {
	if _, _, err := fs.lookupChild(parent, name); err == nil {
		return 0, fsentry.FileAttr{}, ErrExists
	}

	entry := fsentry.New(name, fs.newAttr(fsentry.KindRegularFile, createPerm, uid, gid))
	idx := fs.allocEntry(parent, name, entry)
	fs.bumpMtime(parent)

	return idx, entry.Attr, nil
}

// MkDir creates a new, empty directory named name within parent.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) MkDir(parent tree.Idx, name string, uid, gid uint32) (tree.Idx, fsentry.FileAttr, error) {
	if _, _, err := fs.lookupChild(parent, name); err == nil {
		return 0, fsentry.FileAttr{}, ErrExists
	}

	entry := fsentry.New(name, fs.newAttr(fsentry.KindDirectory, createPerm, uid, gid))
	idx := fs.allocEntry(parent, name, entry)
	fs.bumpMtime(parent)

	return idx, entry.Attr, nil
}

// CreateSymlink creates a symlink named name within parent, pointing at
// target. The target string is kept in fs.symlinks keyed by the new
// inode, not on the entry's Data; internal/fuseadapter retrieves it via
// ReadSymlink.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) CreateSymlink(parent tree.Idx, name, target string, uid, gid uint32) (tree.Idx, fsentry.FileAttr, error) {
	if _, _, err := fs.lookupChild(parent, name); err == nil {
		return 0, fsentry.FileAttr{}, ErrExists
	}

	entry := fsentry.New(name, fs.newAttr(fsentry.KindSymlink, 0444, uid, gid))
	idx := fs.allocEntry(parent, name, entry)
	fs.symlinks[idx] = target
	fs.bumpMtime(parent)

	return idx, entry.Attr, nil
}

// ReadSymlink returns the target of a symlink inode.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) ReadSymlink(inode tree.Idx) (string, error) {
	target, ok := fs.symlinks[inode]
	if !ok {
		return "", ferrors.NotFound
	}
	return target, nil
}
