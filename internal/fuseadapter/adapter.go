// Package fuseadapter wraps internal/messengerfs.MessengerFS as a
// fuse.Server, translating fuseops.*Op requests into engine calls and
// engine errors into POSIX errno values.
//
// The shape — a single struct embedding fuseutil.NotImplementedFileSystem,
// one method per op, each taking a context and an *op and returning only
// an error — is lifted directly from jacobsa/fuse's own memfs sample
// (github.com/jacobsa/fuse/samples/memfs), the reference implementation
// the library itself points newcomers to.
package fuseadapter

import (
	"context"
	"os"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/davlia-projects/messenger-fs/internal/ferrors"
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/messengerfs"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

// attrCacheTTL is how long the kernel may cache attributes and entries.
// The engine never spontaneously mutates behind the kernel's back (every
// write comes in through a fuseops op), so this can be arbitrarily long, as
// memfs sample comments — this can be arbitrarily long.
const attrCacheTTL = 365 * 24 * time.Hour

// Adapter implements fuse.Server (via fuseutil.FileSystemServer) on top
// of a *messengerfs.MessengerFS.
type Adapter struct {
	fuseutil.NotImplementedFileSystem

	fs *messengerfs.MessengerFS
}

// New wraps fs as a fuse.Server ready to hand to fuse.Mount.
func New(fs *messengerfs.MessengerFS) fuse.Server {
	return fuseutil.NewFileSystemServer(&Adapter{fs: fs})
}

func inodeOf(id fuseops.InodeID) tree.Idx { return tree.Idx(id) }
func idOf(idx tree.Idx) fuseops.InodeID   { return fuseops.InodeID(idx) }

func handleIDOf(id fuseops.HandleID) messengerfs.HandleID { return messengerfs.HandleID(id) }

// toErrno maps the engine's sentinel errors onto FUSE's POSIX error
// values, the same responsibility real (non-sample)
// inode implementations give their call sites: translate a domain error
// into fuse.Errno right at the boundary.
func toErrno(err error) error {
	switch {
	case err == nil:
		return nil
	case err == ferrors.NotFound:
		return fuse.ENOENT
	case err == ferrors.Exhausted:
		return fuse.ENFILE
	case err == messengerfs.ErrExists:
		return fuse.EEXIST
	case err == messengerfs.ErrNotEmpty:
		return fuse.ENOTEMPTY
	default:
		return fuse.EIO
	}
}

func toInodeAttributes(a fsentry.FileAttr) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   a.Size,
		Nlink:  a.Nlink,
		Mode:   modeOf(a.Kind, a.Perm),
		Atime:  a.Atime.Time(),
		Mtime:  a.Mtime.Time(),
		Ctime:  a.Ctime.Time(),
		Crtime: a.Crtime.Time(),
		Uid:    a.Uid,
		Gid:    a.Gid,
	}
}

func modeOf(kind fsentry.FileKind, perm uint32) os.FileMode {
	mode := os.FileMode(perm) & os.ModePerm
	switch kind {
	case fsentry.KindDirectory:
		mode |= os.ModeDir
	case fsentry.KindSymlink:
		mode |= os.ModeSymlink
	case fsentry.KindNamedPipe:
		mode |= os.ModeNamedPipe
	case fsentry.KindSocket:
		mode |= os.ModeSocket
	case fsentry.KindCharDevice:
		mode |= os.ModeDevice | os.ModeCharDevice
	case fsentry.KindBlockDevice:
		mode |= os.ModeDevice
	}
	return mode
}

func direntType(kind fsentry.FileKind) fuseutil.DirentType {
	switch kind {
	case fsentry.KindDirectory:
		return fuseutil.DT_Directory
	case fsentry.KindSymlink:
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_File
	}
}

func (a *Adapter) LookUpInode(_ context.Context, op *fuseops.LookUpInodeOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	idx, attr, err := a.fs.LookUp(inodeOf(op.Parent), op.Name)
	if err != nil {
		return toErrno(err)
	}

	op.Entry.Child = idOf(idx)
	op.Entry.Attributes = toInodeAttributes(attr)
	op.Entry.AttributesExpiration = time.Now().Add(attrCacheTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (a *Adapter) GetInodeAttributes(_ context.Context, op *fuseops.GetInodeAttributesOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	attr := a.fs.GetAttr(inodeOf(op.Inode))
	op.Attributes = toInodeAttributes(attr)
	op.AttributesExpiration = time.Now().Add(attrCacheTTL)
	return nil
}

func (a *Adapter) SetInodeAttributes(_ context.Context, op *fuseops.SetInodeAttributesOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	req := messengerfs.SetAttrRequest{Size: op.Size}
	if op.Mode != nil {
		perm := uint32(*op.Mode & os.ModePerm)
		req.Perm = &perm
	}
	if op.Atime != nil {
		t := fsentry.FromTime(*op.Atime)
		req.Atime = &t
	}
	if op.Mtime != nil {
		t := fsentry.FromTime(*op.Mtime)
		req.Mtime = &t
	}

	attr, err := a.fs.SetAttr(inodeOf(op.Inode), req)
	if err != nil {
		return toErrno(err)
	}

	op.Attributes = toInodeAttributes(attr)
	op.AttributesExpiration = time.Now().Add(attrCacheTTL)
	return nil
}

func (a *Adapter) ForgetInode(_ context.Context, op *fuseops.ForgetInodeOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	a.fs.Forget(inodeOf(op.Inode), uint64(op.N))
	return nil
}

func (a *Adapter) MkDir(_ context.Context, op *fuseops.MkDirOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	idx, attr, err := a.fs.MkDir(inodeOf(op.Parent), op.Name, op.OpContext.Uid, op.OpContext.Gid)
	if err != nil {
		return toErrno(err)
	}

	op.Entry.Child = idOf(idx)
	op.Entry.Attributes = toInodeAttributes(attr)
	op.Entry.AttributesExpiration = time.Now().Add(attrCacheTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (a *Adapter) CreateFile(_ context.Context, op *fuseops.CreateFileOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	idx, attr, err := a.fs.CreateFile(inodeOf(op.Parent), op.Name, op.OpContext.Uid, op.OpContext.Gid)
	if err != nil {
		return toErrno(err)
	}

	op.Entry.Child = idOf(idx)
	op.Entry.Attributes = toInodeAttributes(attr)
	op.Entry.AttributesExpiration = time.Now().Add(attrCacheTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	op.Handle = fuseops.HandleID(a.fs.OpenFile(idx))
	return nil
}

func (a *Adapter) CreateSymlink(_ context.Context, op *fuseops.CreateSymlinkOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	idx, attr, err := a.fs.CreateSymlink(inodeOf(op.Parent), op.Name, op.Target, op.OpContext.Uid, op.OpContext.Gid)
	if err != nil {
		return toErrno(err)
	}

	op.Entry.Child = idOf(idx)
	op.Entry.Attributes = toInodeAttributes(attr)
	op.Entry.AttributesExpiration = time.Now().Add(attrCacheTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (a *Adapter) ReadSymlink(_ context.Context, op *fuseops.ReadSymlinkOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	target, err := a.fs.ReadSymlink(inodeOf(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	op.Target = target
	return nil
}

func (a *Adapter) Rename(_ context.Context, op *fuseops.RenameOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	err := a.fs.Rename(inodeOf(op.OldParent), op.OldName, inodeOf(op.NewParent), op.NewName)
	return toErrno(err)
}

func (a *Adapter) RmDir(_ context.Context, op *fuseops.RmDirOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	return toErrno(a.fs.RmDir(inodeOf(op.Parent), op.Name))
}

func (a *Adapter) Unlink(_ context.Context, op *fuseops.UnlinkOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	return toErrno(a.fs.Unlink(inodeOf(op.Parent), op.Name))
}

func (a *Adapter) OpenDir(_ context.Context, op *fuseops.OpenDirOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	op.Handle = fuseops.HandleID(a.fs.OpenDir(inodeOf(op.Inode)))
	return nil
}

func (a *Adapter) ReadDir(_ context.Context, op *fuseops.ReadDirOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	entries, err := a.fs.ReadDir(handleIDOf(op.Handle), int(op.Offset), 4096)
	if err != nil {
		return toErrno(err)
	}

	buf := make([]byte, op.Size)
	var n int
	for i, e := range entries {
		dirent := fuseutil.Dirent{
			Offset: op.Offset + fuseops.DirOffset(i) + 1,
			Inode:  idOf(e.Inode),
			Name:   e.Name,
			Type:   direntType(e.Kind),
		}
		written := fuseutil.WriteDirent(buf[n:], dirent)
		if written == 0 {
			break
		}
		n += written
	}
	op.Data = buf[:n]
	return nil
}

func (a *Adapter) ReleaseDirHandle(_ context.Context, op *fuseops.ReleaseDirHandleOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	a.fs.ReleaseDirHandle(handleIDOf(op.Handle))
	return nil
}

func (a *Adapter) OpenFile(_ context.Context, op *fuseops.OpenFileOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	op.Handle = fuseops.HandleID(a.fs.OpenFile(inodeOf(op.Inode)))
	return nil
}

func (a *Adapter) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	op.Data = make([]byte, op.Size)
	n, err := a.fs.ReadFile(ctx, inodeOf(op.Inode), op.Data, op.Offset)
	if err != nil {
		return toErrno(err)
	}
	op.Data = op.Data[:n]
	return nil
}

func (a *Adapter) WriteFile(_ context.Context, op *fuseops.WriteFileOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	_, err := a.fs.WriteFile(inodeOf(op.Inode), op.Offset, op.Data)
	return toErrno(err)
}

func (a *Adapter) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	return toErrno(a.fs.Fsync(ctx))
}

func (a *Adapter) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	return toErrno(a.fs.Flush(ctx))
}

func (a *Adapter) ReleaseFileHandle(_ context.Context, op *fuseops.ReleaseFileHandleOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	a.fs.ReleaseFileHandle(handleIDOf(op.Handle))
	return nil
}

// SetXattr accepts and ignores extended attributes.
func (a *Adapter) SetXattr(_ context.Context, op *fuseops.SetXattrOp) error {
	return nil
}

func (a *Adapter) StatFS(_ context.Context, op *fuseops.StatFSOp) error {
	a.fs.Lock()
	defer a.fs.Unlock()

	stat := a.fs.StatFS()
	op.BlockSize = stat.BlockSize
	op.Blocks = stat.Blocks
	op.BlocksFree = stat.BlocksFree
	op.BlocksAvailable = stat.BlocksFree
	op.Inodes = stat.Files + stat.FilesFree
	op.InodesFree = stat.FilesFree
	op.IoSize = stat.BlockSize
	return nil
}
