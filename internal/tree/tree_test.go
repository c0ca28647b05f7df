package tree

import "testing"

func TestAddAndGet(t *testing.T) {
	tr := New[string]()
	tr.Add(nil, 1, "root")
	tr.Add(idx(1), 2, "child")

	if got := tr.Get(2).Entry; got != "child" {
		t.Fatalf("got %q, want %q", got, "child")
	}
	if got := tr.Get(1).Children; len(got) != 1 || got[0] != 2 {
		t.Fatalf("root children = %v, want [2]", got)
	}
}

func TestDeleteRemovesFromParentAndArena(t *testing.T) {
	tr := New[string]()
	tr.Add(nil, 1, "root")
	tr.Add(idx(1), 2, "child")

	tr.Delete(idx(1), 2)

	if tr.Get(2) != nil {
		t.Fatalf("expected node 2 to be gone")
	}
	if got := tr.Get(1).Children; len(got) != 0 {
		t.Fatalf("root children = %v, want empty", got)
	}
}

func TestMovePreservesChildren(t *testing.T) {
	tr := New[string]()
	tr.Add(nil, 1, "root")
	tr.Add(idx(1), 2, "dirA")
	tr.Add(idx(1), 3, "dirB")
	tr.Add(idx(2), 4, "leaf")

	tr.Move(1, 3, 2)

	if got := tr.Get(1).Children; len(got) != 1 || got[0] != 3 {
		t.Fatalf("old parent children = %v, want [3]", got)
	}
	if got := tr.Get(3).Children; len(got) != 1 || got[0] != 2 {
		t.Fatalf("new parent children = %v, want [2]", got)
	}
	if got := tr.Get(2).Children; len(got) != 1 || got[0] != 4 {
		t.Fatalf("moved node lost its children: %v", got)
	}
	if p := tr.Get(2).Parent; p == nil || *p != 3 {
		t.Fatalf("moved node parent = %v, want 3", p)
	}
}

func TestMovePanicsOnUnknownNewParent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	tr := New[string]()
	tr.Add(nil, 1, "root")
	tr.Move(1, 99, 1)
}

func TestCheckInvariantsPanicsOnOrphanedParent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	tr := New[string]()
	tr.Add(nil, 1, "root")
	bad := Idx(1)
	tr.arena[2] = &Node[string]{Parent: &bad, Entry: "orphan"}
	// node 2 was never appended to root's Children.
	tr.CheckInvariants()
}

func idx(i Idx) *Idx { return &i }
