package messengerfs

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/davlia-projects/messenger-fs/internal/block"
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// snapshotNode is one row of the serialized tree: an entry plus enough
// structure (parent pointer) to rebuild the tree.Tree and name index on
// restore. Serialized with yaml.v3, the same library this repo
// uses for its own on-disk config (gcsfuse's cfg package).
type snapshotNode struct {
	Inode  uint64            `yaml:"inode"`
	Parent *uint64           `yaml:"parent,omitempty"`
	Name   string            `yaml:"name"`
	Attr   fsentry.FileAttr  `yaml:"attr"`
	Data   []fsentry.DataLoc `yaml:"data,omitempty"`
	Target string            `yaml:"target,omitempty"`
}

// snapshotDoc is the full document posted as a self-message attachment.
type snapshotDoc struct {
	Version   int                 `yaml:"version"`
	NextInode uint64              `yaml:"next_inode"`
	Nodes     []snapshotNode      `yaml:"nodes"`
	Blocks    []block.SnapshotBlock `yaml:"blocks"`
}

const snapshotVersion = 1

// Serialize renders the current tree and block bookkeeping as a YAML
// document suitable for posting as a self-message. Callers must have
// already synced all dirty blocks (Flush does this).
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) Serialize() (string, error) {
	doc := snapshotDoc{
		Version:   snapshotVersion,
		NextInode: uint64(fs.nextInode),
	}

	for idx := range fs.allIndices() {
		node := fs.tree.Get(idx)
		sn := snapshotNode{
			Inode: uint64(idx),
			Name:  node.Entry.Name,
			Attr:  node.Entry.Attr,
			Data:  node.Entry.Data,
		}
		if node.Parent != nil {
			p := uint64(*node.Parent)
			sn.Parent = &p
		}
		if target, ok := fs.symlinks[idx]; ok {
			sn.Target = target
		}
		doc.Nodes = append(doc.Nodes, sn)
	}

	blocks, err := fs.blocks.ExportSnapshot()
	if err != nil {
		return "", err
	}
	doc.Blocks = blocks

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("messengerfs: marshaling snapshot: %w", err)
	}
	return string(out), nil
}

// deserializeInto parses body and rebuilds fs's tree, name index, and
// block pool from it, replacing whatever (if anything) fs currently
// holds. Used by Restore.
func (fs *MessengerFS) deserializeInto(body string) error {
	var doc snapshotDoc
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("messengerfs: unmarshaling snapshot: %w", err)
	}
	if doc.Version != snapshotVersion {
		return fmt.Errorf("messengerfs: unsupported snapshot version %d", doc.Version)
	}

	fs.tree = tree.New[*fsentry.FileSystemEntry]()
	fs.names = make(map[nameKey]tree.Idx)
	fs.symlinks = make(map[tree.Idx]string)
	fs.nextInode = tree.Idx(doc.NextInode)
	fs.blocks = block.NewPool(fs.blocks.BlockSize(), fs.blocks.MaxBlocks(), fs.client, fs.threadID)

	byParent := make(map[uint64][]snapshotNode)
	byInode := make(map[uint64]snapshotNode)
	for _, n := range doc.Nodes {
		byInode[n.Inode] = n
		if n.Parent != nil {
			byParent[*n.Parent] = append(byParent[*n.Parent], n)
		}
	}

	root, ok := byInode[uint64(RootInode)]
	if !ok {
		return fmt.Errorf("messengerfs: snapshot missing root inode")
	}
	fs.tree.Add(nil, RootInode, fsentry.New(root.Name, root.Attr))
	if root.Data != nil {
		fs.tree.Get(RootInode).Entry.Data = root.Data
	}

	var walk func(parent uint64)
	walk = func(parent uint64) {
		for _, n := range byParent[parent] {
			entry := fsentry.New(n.Name, n.Attr)
			entry.Data = n.Data
			idx := tree.Idx(n.Inode)
			p := tree.Idx(parent)
			fs.tree.Add(&p, idx, entry)
			fs.names[nameKey{parent: p, name: n.Name}] = idx
			if n.Target != "" {
				fs.symlinks[idx] = n.Target
			}
			walk(n.Inode)
		}
	}
	walk(uint64(RootInode))

	fs.blocks.ImportSnapshot(doc.Blocks)

	return nil
}
