package messengerfs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/messenger/messengertest"
)

// fakeClock is a trivial timeutil.Clock that advances by a fixed step on
// every call, so tests can assert ordering (mtime after ctime, etc.)
// without depending on wall-clock time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestFS(t *testing.T) (*MessengerFS, *messengertest.Fake) {
	t.Helper()
	client := messengertest.New()
	fs, err := New(context.Background(), Config{
		BlockSize:    16,
		MaxNumBlocks: 64,
		RootUID:      1000,
		RootGID:      1000,
	}, &fakeClock{t: time.Unix(1700000000, 0)}, client)
	require.NoError(t, err)
	return fs, client
}

func TestRootHasWorldWritablePerm(t *testing.T) {
	fs, _ := newTestFS(t)

	attr := fs.GetAttr(RootInode)
	assert.Equal(t, uint32(0o777), attr.Perm)
}

func TestCreateAndLookUp(t *testing.T) {
	fs, _ := newTestFS(t)

	idx, attr, err := fs.CreateFile(RootInode, "hello.txt", 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, fsentry.KindRegularFile, attr.Kind)

	gotIdx, gotAttr, err := fs.LookUp(RootInode, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, idx, gotIdx)
	assert.Equal(t, attr.Inode, gotAttr.Inode)
}

func TestCreateFileRejectsDuplicateName(t *testing.T) {
	fs, _ := newTestFS(t)

	_, _, err := fs.CreateFile(RootInode, "dup", 0, 0)
	require.NoError(t, err)

	_, _, err = fs.CreateFile(RootInode, "dup", 0, 0)
	assert.ErrorIs(t, err, ErrExists)
}

func TestMkDirAndReadDir(t *testing.T) {
	fs, _ := newTestFS(t)

	dirIdx, _, err := fs.MkDir(RootInode, "sub", 0, 0)
	require.NoError(t, err)
	_, _, err = fs.CreateFile(dirIdx, "a", 0, 0)
	require.NoError(t, err)
	_, _, err = fs.CreateFile(dirIdx, "b", 0, 0)
	require.NoError(t, err)

	h := fs.OpenDir(dirIdx)
	entries, err := fs.ReadDir(h, 0, 10)
	require.NoError(t, err)
	// "." and ".." precede the two real children.
	require.Len(t, entries, 4)
	assert.Equal(t, ".", entries[0].Name)
	assert.Equal(t, dirIdx, entries[0].Inode)
	assert.Equal(t, "..", entries[1].Name)
	assert.Equal(t, RootInode, entries[1].Inode)

	names := []string{entries[2].Name, entries[3].Name}
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	more, err := fs.ReadDir(h, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, more)

	fs.ReleaseDirHandle(h)
}

func TestReadDirIncludesDotAndDotDotAtRoot(t *testing.T) {
	fs, _ := newTestFS(t)

	h := fs.OpenDir(RootInode)
	entries, err := fs.ReadDir(h, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DirEntry{Inode: RootInode, Name: ".", Kind: fsentry.KindDirectory}, entries[0])
	// The root is its own parent.
	assert.Equal(t, DirEntry{Inode: RootInode, Name: "..", Kind: fsentry.KindDirectory}, entries[1])
}

func TestReadDirPaginatesStably(t *testing.T) {
	fs, _ := newTestFS(t)

	for _, name := range []string{"a", "b", "c"} {
		_, _, err := fs.CreateFile(RootInode, name, 0, 0)
		require.NoError(t, err)
	}

	h := fs.OpenDir(RootInode)
	// Snapshot is [".", "..", "a", "b", "c"].
	first, err := fs.ReadDir(h, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ".", first[0].Name)
	assert.Equal(t, "..", first[1].Name)

	// A mutation between ReadDir calls must not affect the snapshot
	// already captured by this handle.
	_, _, err = fs.CreateFile(RootInode, "d", 0, 0)
	require.NoError(t, err)

	rest, err := fs.ReadDir(h, 2, 10)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, []string{rest[0].Name, rest[1].Name, rest[2].Name})
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	fs, _ := newTestFS(t)

	idx, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	n, err := fs.WriteFile(idx, 0, payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	dst := make([]byte, len(payload))
	n, err = fs.ReadFile(context.Background(), idx, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, dst)
}

func TestWriteOverwritesAcrossBlockBoundary(t *testing.T) {
	fs, _ := newTestFS(t)

	idx, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)

	original := "0123456789abcdef0123456789" // 26 bytes, spans two 16-byte blocks
	_, err = fs.WriteFile(idx, 0, []byte(original))
	require.NoError(t, err)

	// Overwrite bytes [14, 19), straddling the block-0/block-1 boundary
	// at offset 16.
	n, err := fs.WriteFile(idx, 14, []byte("XXXXX"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	dst := make([]byte, len(original))
	_, err = fs.ReadFile(context.Background(), idx, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdXXXXX3456789", string(dst))
}

func TestWritePastEndLeavesHole(t *testing.T) {
	fs, _ := newTestFS(t)

	idx, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)

	n, err := fs.WriteFile(idx, 10, []byte("end"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dst := make([]byte, 13)
	read, err := fs.ReadFile(context.Background(), idx, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, 13, read)
	assert.Equal(t, make([]byte, 10), dst[:10])
	assert.Equal(t, "end", string(dst[10:]))
}

func TestSetAttrTruncateShrinksAndGrows(t *testing.T) {
	fs, _ := newTestFS(t)

	idx, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)
	_, err = fs.WriteFile(idx, 0, []byte("0123456789"))
	require.NoError(t, err)

	size := uint64(4)
	attr, err := fs.SetAttr(idx, SetAttrRequest{Size: &size})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), attr.Size)

	grown := uint64(8)
	attr, err = fs.SetAttr(idx, SetAttrRequest{Size: &grown})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), attr.Size)

	dst := make([]byte, 8)
	_, err = fs.ReadFile(context.Background(), idx, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(dst[:4]))
	assert.Equal(t, make([]byte, 4), dst[4:])
}

func TestUnlinkRemovesFile(t *testing.T) {
	fs, _ := newTestFS(t)

	_, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)

	require.NoError(t, fs.Unlink(RootInode, "f"))

	_, _, err = fs.LookUp(RootInode, "f")
	assert.Error(t, err)
}

func TestRmDirRejectsNonEmpty(t *testing.T) {
	fs, _ := newTestFS(t)

	dirIdx, _, err := fs.MkDir(RootInode, "sub", 0, 0)
	require.NoError(t, err)
	_, _, err = fs.CreateFile(dirIdx, "child", 0, 0)
	require.NoError(t, err)

	err = fs.RmDir(RootInode, "sub")
	assert.ErrorIs(t, err, ErrNotEmpty)

	require.NoError(t, fs.Unlink(dirIdx, "child"))
	require.NoError(t, fs.RmDir(RootInode, "sub"))
}

func TestRenamePreservesChildren(t *testing.T) {
	fs, _ := newTestFS(t)

	dirIdx, _, err := fs.MkDir(RootInode, "old", 0, 0)
	require.NoError(t, err)
	childIdx, _, err := fs.CreateFile(dirIdx, "leaf", 0, 0)
	require.NoError(t, err)

	otherDir, _, err := fs.MkDir(RootInode, "dest", 0, 0)
	require.NoError(t, err)

	require.NoError(t, fs.Rename(RootInode, "old", otherDir, "moved"))

	_, _, err = fs.LookUp(RootInode, "old")
	assert.Error(t, err)

	newIdx, _, err := fs.LookUp(otherDir, "moved")
	require.NoError(t, err)

	h := fs.OpenDir(newIdx)
	entries, err := fs.ReadDir(h, 0, 10)
	require.NoError(t, err)
	// "." and ".." precede the one real child.
	require.Len(t, entries, 3)
	assert.Equal(t, childIdx, entries[2].Inode)
}

func TestFlushThenRestoreRoundTrip(t *testing.T) {
	fs, client := newTestFS(t)

	idx, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)
	payload := []byte("persisted across a restore")
	_, err = fs.WriteFile(idx, 0, payload)
	require.NoError(t, err)
	_, _, err = fs.MkDir(RootInode, "sub", 0, 0)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Flush(ctx))

	restored, err := New(ctx, Config{BlockSize: 16, MaxNumBlocks: 64}, &fakeClock{t: time.Unix(1700000000, 0)}, client)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(ctx))

	gotIdx, attr, err := restored.LookUp(RootInode, "f")
	require.NoError(t, err)
	assert.Equal(t, fsentry.KindRegularFile, attr.Kind)
	assert.Equal(t, uint64(len(payload)), attr.Size)

	dst := make([]byte, len(payload))
	_, err = restored.ReadFile(ctx, gotIdx, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, dst)

	_, _, err = restored.LookUp(RootInode, "sub")
	require.NoError(t, err)
}

func TestRestoreWithNoPriorSnapshotKeepsEmptyTree(t *testing.T) {
	client := messengertest.New()
	fs, err := New(context.Background(), Config{BlockSize: 16, MaxNumBlocks: 8}, &fakeClock{t: time.Unix(0, 0)}, client)
	require.NoError(t, err)

	require.NoError(t, fs.Restore(context.Background()))

	_, attr, err := fs.LookUp(RootInode, "nonexistent")
	assert.Error(t, err)
	_ = attr
}

func TestInvariantsHoldAcrossMutationSequence(t *testing.T) {
	fs, _ := newTestFS(t)
	assert.NotPanics(t, fs.checkInvariants)

	a, _, err := fs.MkDir(RootInode, "a", 0, 0)
	require.NoError(t, err)
	b, _, err := fs.MkDir(RootInode, "b", 0, 0)
	require.NoError(t, err)
	_, _, err = fs.CreateFile(a, "leaf", 0, 0)
	require.NoError(t, err)
	assert.NotPanics(t, fs.checkInvariants)

	require.NoError(t, fs.Rename(RootInode, "a", b, "a"))
	assert.NotPanics(t, fs.checkInvariants)

	movedDir, _, err := fs.LookUp(b, "a")
	require.NoError(t, err)
	require.NoError(t, fs.Unlink(movedDir, "leaf"))
	require.NoError(t, fs.RmDir(b, "a"))
	assert.NotPanics(t, fs.checkInvariants)
}

func TestStatFSReportsBlockCeiling(t *testing.T) {
	fs, _ := newTestFS(t)

	idx, _, err := fs.CreateFile(RootInode, "f", 0, 0)
	require.NoError(t, err)
	_, err = fs.WriteFile(idx, 0, make([]byte, 16))
	require.NoError(t, err)

	stats := fs.StatFS()
	assert.Equal(t, uint64(64), stats.Blocks)
	assert.Equal(t, uint64(63), stats.BlocksFree)
}
