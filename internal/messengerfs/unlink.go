package messengerfs

import (
	"errors"

	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// ErrNotEmpty is returned by RmDir and Rename when the operation would
// clobber or remove a non-empty directory.
var ErrNotEmpty = errNotEmpty{}

type errNotEmpty struct{}

func (errNotEmpty) Error() string { return "messengerfs: directory not empty" }

// Unlink removes a non-directory entry named name from parent. The tree
// node is dropped outright and Nlink is left unchanged: there is exactly
// one name per inode, so removing the name removes the inode.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) Unlink(parent tree.Idx, name string) error {
	idx, entry, err := fs.lookupChild(parent, name)
	if err != nil {
		return err
	}
	if entry.Attr.Kind == fsentry.KindDirectory {
		return errors.New("messengerfs: unlink called on a directory")
	}

	fs.removeEntry(parent, name, idx)
	delete(fs.symlinks, idx)
	fs.bumpMtime(parent)
	return nil
}

// RmDir removes an empty directory named name from parent.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) RmDir(parent tree.Idx, name string) error {
	idx, entry, err := fs.lookupChild(parent, name)
	if err != nil {
		return err
	}
	if entry.Attr.Kind != fsentry.KindDirectory {
		return errors.New("messengerfs: rmdir called on a non-directory")
	}

	node := fs.tree.Get(idx)
	if len(node.Children) > 0 {
		return ErrNotEmpty
	}

	fs.removeEntry(parent, name, idx)
	fs.bumpMtime(parent)
	return nil
}

// Rename moves the entry named oldName in oldParent to newName in
// newParent, clobbering an existing empty-directory or file at the
// destination if present. Behavior here follows a conventional
// fuseops.RenameOp handler, in the style of jacobsa/fuse's memfs sample.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) Rename(oldParent tree.Idx, oldName string, newParent tree.Idx, newName string) error {
	idx, _, err := fs.lookupChild(oldParent, oldName)
	if err != nil {
		return err
	}

	if existingIdx, existing, err := fs.lookupChild(newParent, newName); err == nil {
		if existing.Attr.Kind == fsentry.KindDirectory {
			if node := fs.tree.Get(existingIdx); len(node.Children) > 0 {
				return ErrNotEmpty
			}
		}
		fs.removeEntry(newParent, newName, existingIdx)
	}

	entry := fs.getEntryOrDie(idx)
	entry.Name = newName

	fs.tree.Move(oldParent, newParent, idx)
	delete(fs.names, nameKey{parent: oldParent, name: oldName})
	fs.names[nameKey{parent: newParent, name: newName}] = idx

	fs.bumpMtime(oldParent)
	fs.bumpMtime(newParent)
	return nil
}
