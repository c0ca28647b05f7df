// Package fsentry defines the per-inode metadata record stored in the
// filesystem tree: POSIX-style attributes plus the ordered list of block
// extents that make up a regular file's bytes.
//
// This is a thin record; all mutating logic lives in internal/messengerfs.
// The shapes mirror fuseops.InodeAttributes (github.com/jacobsa/fuse), the
// same attribute struct gcsfuse fills in from its inode implementations.
package fsentry

import "time"

// FileKind enumerates the POSIX node types representable in the tree. The
// engine implements read/write/storage behavior only for Directory and
// RegularFile; the others are representable in metadata but inert.
type FileKind int

const (
	KindDirectory FileKind = iota
	KindRegularFile
	KindNamedPipe
	KindCharDevice
	KindBlockDevice
	KindSymlink
	KindSocket
)

// Timespec is a (seconds, nanoseconds) pair, matching fuseops' attribute
// shape and serialized directly by internal/messengerfs's snapshot
// format.
type Timespec struct {
	Sec  int64 `yaml:"sec"`
	Nsec int32 `yaml:"nsec"`
}

// FromTime converts a time.Time to a Timespec.
func FromTime(t time.Time) Timespec {
	return Timespec{Sec: t.Unix(), Nsec: int32(t.Nanosecond())}
}

// Time converts a Timespec back to a time.Time in UTC.
func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec)).UTC()
}

// FileAttr is the POSIX-style attribute record for a single inode.
type FileAttr struct {
	Inode  uint64 `yaml:"inode"`
	Size   uint64 `yaml:"size"`
	Blocks uint64 `yaml:"blocks"`

	Atime  Timespec `yaml:"atime"`
	Mtime  Timespec `yaml:"mtime"`
	Ctime  Timespec `yaml:"ctime"`
	Crtime Timespec `yaml:"crtime"`

	Kind FileKind `yaml:"kind"`
	Perm uint32   `yaml:"perm"`

	Nlink uint32 `yaml:"nlink"`
	Uid   uint32 `yaml:"uid"`
	Gid   uint32 `yaml:"gid"`
	Rdev  uint32 `yaml:"rdev"`

	Flags uint32 `yaml:"flags"`
}

// DataLoc is a contiguous extent inside one block. A file's bytes are the
// concatenation, in order, of its DataLoc list.
type DataLoc struct {
	BlockID uint64 `yaml:"block_id"`
	Offset  uint64 `yaml:"offset"`
	Size    uint64 `yaml:"size"`
}

// End returns the logical byte offset one past the end of this extent
// within the file's byte stream, given the cumulative offset at which
// this extent begins.
func (d DataLoc) End(fileOffset uint64) uint64 {
	return fileOffset + d.Size
}

// FileSystemEntry is a single inode's metadata: its name within its
// parent, its attributes, and (for regular files) the ordered extent list
// describing its bytes. Directories carry a nil Data.
type FileSystemEntry struct {
	Name string
	Attr FileAttr
	Data []DataLoc
}

// New creates an entry stamped with the given attributes. Data starts out
// nil: a freshly created file has no bytes until the first write.
func New(name string, attr FileAttr) *FileSystemEntry {
	return &FileSystemEntry{Name: name, Attr: attr}
}

// Size returns the logical size of the file as implied by its extent
// list, which should always agree with Attr.Size after a write.
func (e *FileSystemEntry) Size() uint64 {
	var total uint64
	for _, d := range e.Data {
		total += d.Size
	}
	return total
}
