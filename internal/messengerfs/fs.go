// Package messengerfs is the filesystem engine: an in-memory metadata
// tree plus a block.Pool, kept consistent under a single
// syncutil.InvariantMutex the way an in-memory sample filesystem guards its
// inode table. internal/fuseadapter wraps this package's methods as
// fuseops handlers; nothing here knows about FUSE.
package messengerfs

import (
	"context"
	"fmt"

	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/davlia-projects/messenger-fs/internal/block"
	"github.com/davlia-projects/messenger-fs/internal/ferrors"
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/messenger"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// RootInode is the well-known inode number of the filesystem root,
// matching fuseops.RootInodeID so internal/fuseadapter can hand inode
// numbers straight through without translation.
const RootInode tree.Idx = 1

// Config bundles the tunables needed to construct a MessengerFS.
type Config struct {
	BlockSize    uint64
	MaxNumBlocks int
	RootUID      uint32
	RootGID      uint32
}

// nameKey scopes a child name to its parent:
// open question about whether names collide filesystem-wide or only
// within a directory: here, only within a directory.
type nameKey struct {
	parent tree.Idx
	name   string
}

// MessengerFS is the filesystem engine.
type MessengerFS struct {
	clock timeutil.Clock

	mu syncutil.InvariantMutex

	tree *tree.Tree[*fsentry.FileSystemEntry] // GUARDED_BY(mu)
	// names indexes children by (parent, name) for O(1) lookup; it is
	// kept in lockstep with tree's Children lists by every mutator in
	// this package.
	names map[nameKey]tree.Idx // GUARDED_BY(mu)

	nextInode tree.Idx // GUARDED_BY(mu)

	blocks *block.Pool // GUARDED_BY(mu)

	handles *handleTable // GUARDED_BY(mu)

	// symlinks maps a symlink inode to its target path. Kept separate
	// from fsentry.FileSystemEntry.Data, which is reserved for regular
	// files' block extents.
	symlinks map[tree.Idx]string // GUARDED_BY(mu)

	client   messenger.Client
	threadID string
}

// New constructs an empty filesystem rooted at a single directory, with
// no history in the messenger thread. Call Restore on the result to
// reconstitute it from a prior snapshot.
func New(ctx context.Context, cfg Config, clock timeutil.Clock, client messenger.Client) (*MessengerFS, error) {
	threadID, err := client.MyThreadID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving self thread: %v", ferrors.IoFailed, err)
	}

	fs := &MessengerFS{
		clock:    clock,
		tree:     tree.New[*fsentry.FileSystemEntry](),
		names:    make(map[nameKey]tree.Idx),
		blocks:   block.NewPool(cfg.BlockSize, cfg.MaxNumBlocks, client, threadID),
		handles:  newHandleTable(),
		symlinks: make(map[tree.Idx]string),
		client:   client,
		threadID: threadID,
		nextInode: RootInode,
	}

	now := fsentry.FromTime(clock.Now())
	root := fsentry.New("", fsentry.FileAttr{
		Inode:  uint64(RootInode),
		Kind:   fsentry.KindDirectory,
		Perm:   0o777,
		Nlink:  2,
		Uid:    cfg.RootUID,
		Gid:    cfg.RootGID,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
		Crtime: now,
	})
	fs.tree.Add(nil, RootInode, root)
	fs.nextInode = RootInode + 1

	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	return fs, nil
}

// Lock acquires the engine's single writer lock. internal/fuseadapter
// calls this at the top of every handler, mirroring the
// fs.mu.Lock(); defer fs.mu.Unlock() pattern.
func (fs *MessengerFS) Lock()   { fs.mu.Lock() }
func (fs *MessengerFS) Unlock() { fs.mu.Unlock() }

// checkInvariants panics if the engine's bookkeeping has drifted from
// the tree's actual shape. Registered with syncutil.NewInvariantMutex
// so it runs automatically around every Lock/Unlock pair in builds that
// enable invariant checking (see jacobsa/syncutil's documentation).
func (fs *MessengerFS) checkInvariants() {
	fs.tree.CheckInvariants()

	root := fs.tree.Get(RootInode)
	if root == nil {
		panic("messengerfs: root inode missing from tree")
	}
	if root.Entry.Attr.Kind != fsentry.KindDirectory {
		panic("messengerfs: root inode is not a directory")
	}

	seen := make(map[nameKey]tree.Idx, len(fs.names))
	for idx := range fs.allIndices() {
		node := fs.tree.Get(idx)
		if node.Parent == nil {
			continue
		}
		key := nameKey{parent: *node.Parent, name: node.Entry.Name}
		seen[key] = idx
	}

	if len(seen) != len(fs.names) {
		panic(fmt.Sprintf("messengerfs: name index has %d entries, tree implies %d", len(fs.names), len(seen)))
	}
	for key, idx := range seen {
		if fs.names[key] != idx {
			panic(fmt.Sprintf("messengerfs: name index mismatch for %+v", key))
		}
	}
}

// allIndices is a small helper so checkInvariants can range over every
// live node without exposing the tree's internal arena type.
func (fs *MessengerFS) allIndices() map[tree.Idx]struct{} {
	out := make(map[tree.Idx]struct{})
	var walk func(tree.Idx)
	walk = func(idx tree.Idx) {
		out[idx] = struct{}{}
		node := fs.tree.Get(idx)
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(RootInode)
	return out
}

// getEntryOrDie returns the entry at idx, panicking if it's missing.
// Used the way a getInodeOrDie helper is: the VFS layer should
// never hand back an inode number this engine didn't itself allocate
// and hasn't since deleted without telling the kernel.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) getEntryOrDie(idx tree.Idx) *fsentry.FileSystemEntry {
	node := fs.tree.Get(idx)
	if node == nil {
		panic(fmt.Sprintf("messengerfs: unknown inode %d", idx))
	}
	return node.Entry
}

// lookupChild resolves name within parent, returning ferrors.NotFound
// if absent.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) lookupChild(parent tree.Idx, name string) (tree.Idx, *fsentry.FileSystemEntry, error) {
	idx, ok := fs.names[nameKey{parent: parent, name: name}]
	if !ok {
		return 0, nil, ferrors.NotFound
	}
	return idx, fs.getEntryOrDie(idx), nil
}

// allocEntry mints a fresh inode number and inserts entry as a child of
// parent under name, keeping the name index in sync.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) allocEntry(parent tree.Idx, name string, entry *fsentry.FileSystemEntry) tree.Idx {
	idx := fs.nextInode
	fs.nextInode++

	entry.Attr.Inode = uint64(idx)
	fs.tree.Add(&parent, idx, entry)
	fs.names[nameKey{parent: parent, name: name}] = idx
	return idx
}

// removeEntry detaches idx from parent's children and the name index.
// It does not touch block storage or cascade to children; callers
// (Unlink, RmDir) are responsible for ensuring that's safe.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) removeEntry(parent tree.Idx, name string, idx tree.Idx) {
	delete(fs.names, nameKey{parent: parent, name: name})
	fs.tree.Delete(&parent, idx)
}

// bumpMtime stamps an entry's Mtime/Ctime to the current clock time: a
// directory's mtime should advance on every create/unlink/rename under
// it, the same as a POSIX filesystem's.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) bumpMtime(idx tree.Idx) {
	e := fs.getEntryOrDie(idx)
	now := fsentry.FromTime(fs.clock.Now())
	e.Attr.Mtime = now
	e.Attr.Ctime = now
}

