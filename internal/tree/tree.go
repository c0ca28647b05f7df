// Package tree implements a generic, arena-backed labeled tree keyed by
// stable 64-bit indices.
//
// It replaces the cyclic owning-reference structure of the original
// implementation (parent/child pointers with interior mutability) with a
// flat map from index to node, where parent/child links are plain index
// values. This makes the structure trivially free of reference cycles and
// keeps a single mutable owner (whatever holds the Tree).
//
// The tree has no notion of filesystem semantics; it is a building block
// for internal/messengerfs.
package tree

// Idx is the stable identifier used to key nodes in the arena. Callers
// (internal/messengerfs) use fuseops.InodeID-compatible uint64 values.
type Idx uint64

// Node is a single element of the tree: an optional parent, a list of
// children in insertion order, and the caller-supplied payload.
type Node[T any] struct {
	Parent   *Idx
	Children []Idx
	Entry    T
}

// Tree is an arena of Nodes keyed by Idx.
//
// INVARIANT: every non-root node's Parent is present in arena.
// INVARIANT: a node's Idx appears in its parent's Children list.
// INVARIANT: the parent/child relation is acyclic.
type Tree[T any] struct {
	arena map[Idx]*Node[T]
}

// New returns an empty tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{arena: make(map[Idx]*Node[T])}
}

// Add inserts a new node at idx with the given entry. If parent is
// non-nil, idx is appended to that parent's Children; the parent must
// already exist in the arena or Add panics.
func (t *Tree[T]) Add(parent *Idx, idx Idx, entry T) {
	if parent != nil {
		p, ok := t.arena[*parent]
		if !ok {
			panic("tree: Add called with unknown parent")
		}
		p.Children = append(p.Children, idx)
	}

	t.arena[idx] = &Node[T]{
		Parent: parent,
		Entry:  entry,
	}
}

// Get returns the node at idx, or nil if it doesn't exist.
func (t *Tree[T]) Get(idx Idx) *Node[T] {
	return t.arena[idx]
}

// Delete removes the node at idx. If parent is non-nil, idx is also
// stripped from that parent's Children list. Children of the removed
// node are not cascaded; the caller is responsible for that if needed.
func (t *Tree[T]) Delete(parent *Idx, idx Idx) {
	if parent != nil {
		if p, ok := t.arena[*parent]; ok {
			for i, c := range p.Children {
				if c == idx {
					p.Children = append(p.Children[:i], p.Children[i+1:]...)
					break
				}
			}
		}
	}

	delete(t.arena, idx)
}

// Move relocates idx from oldParent to newParent, preserving idx's own
// Children list (unlike Delete followed by Add, which would discard
// it). Both oldParent and newParent must already exist in the arena.
func (t *Tree[T]) Move(oldParent, newParent Idx, idx Idx) {
	if old, ok := t.arena[oldParent]; ok {
		for i, c := range old.Children {
			if c == idx {
				old.Children = append(old.Children[:i], old.Children[i+1:]...)
				break
			}
		}
	}

	newP, ok := t.arena[newParent]
	if !ok {
		panic("tree: Move called with unknown new parent")
	}
	newP.Children = append(newP.Children, idx)

	node, ok := t.arena[idx]
	if !ok {
		panic("tree: Move called with unknown node")
	}
	p := newParent
	node.Parent = &p
}

// Len reports the number of live nodes in the arena.
func (t *Tree[T]) Len() int {
	return len(t.arena)
}

// CheckInvariants panics if the tree's structural invariants are
// violated. Intended for use from tests and from invariant-checking
// mutexes, in the style of jacobsa/syncutil.InvariantMutex.
func (t *Tree[T]) CheckInvariants() {
	for idx, n := range t.arena {
		if n.Parent == nil {
			continue
		}

		parent, ok := t.arena[*n.Parent]
		if !ok {
			panic("tree: node's parent is not present in the arena")
		}

		found := false
		for _, c := range parent.Children {
			if c == idx {
				found = true
				break
			}
		}
		if !found {
			panic("tree: node's index is absent from its parent's children")
		}
	}

	for idx := range t.arena {
		seen := make(map[Idx]bool)
		for cur := idx; ; {
			if seen[cur] {
				panic("tree: parent links form a cycle")
			}
			seen[cur] = true
			n := t.arena[cur]
			if n == nil || n.Parent == nil {
				break
			}
			cur = *n.Parent
		}
	}
}
