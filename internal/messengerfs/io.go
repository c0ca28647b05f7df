package messengerfs

import (
	"context"

	"github.com/davlia-projects/messenger-fs/internal/block"
	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/tree"
)

func blockIDOf(loc fsentry.DataLoc) block.ID {
	return block.ID(loc.BlockID)
}

// OpenFile opens inode for read/write and returns a handle.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) OpenFile(inode tree.Idx) HandleID {
	return fs.handles.open(inode, false)
}

// ReleaseFileHandle releases a handle opened by OpenFile.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) ReleaseFileHandle(h HandleID) {
	fs.handles.release(h)
}

// ReadFile reads up to len(dst) bytes from inode starting at offset,
// returning the number of bytes read. A read past the end of the file
// returns (0, nil): a short read means EOF, it should not
// surface io.EOF to the kernel" convention.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) ReadFile(ctx context.Context, inode tree.Idx, dst []byte, offset int64) (int, error) {
	entry := fs.getEntryOrDie(inode)

	size := int64(entry.Size())
	if offset >= size {
		return 0, nil
	}

	want := uint64(len(dst))
	if int64(want) > size-offset {
		want = uint64(size - offset)
	}

	var written uint64
	var fileOffset uint64
	for _, loc := range entry.Data {
		locEnd := fileOffset + loc.Size
		readStart := uint64(offset) + written

		if locEnd <= readStart {
			fileOffset = locEnd
			continue
		}
		if fileOffset >= readStart+want {
			break
		}

		skipInLoc := uint64(0)
		if readStart > fileOffset {
			skipInLoc = readStart - fileOffset
		}
		avail := loc.Size - skipInLoc
		need := want - written
		if avail > need {
			avail = need
		}

		chunk, err := fs.blocks.Read(ctx, blockIDOf(loc), loc.Offset+skipInLoc, avail)
		if err != nil {
			return int(written), err
		}
		copy(dst[written:], chunk)
		written += uint64(len(chunk))

		fileOffset = locEnd
		if written >= want {
			break
		}
	}

	return int(written), nil
}

// WriteFile overwrites inode's bytes starting at offset with src,
// extending the file and allocating new blocks as needed. This
// implements full byte-range overwrite semantics, replacing an
// ambiguous truncate-then-append approach: a write that lands inside an
// existing extent patches
// it in place; a write that extends past the current end appends a
// freshly allocated extent for the tail.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) WriteFile(inode tree.Idx, offset int64, src []byte) (int, error) {
	entry := fs.getEntryOrDie(inode)

	if offset < 0 {
		return 0, nil
	}

	// Zero-pad a hole if the write starts past the current end.
	if gap := offset - int64(entry.Size()); gap > 0 {
		if _, err := fs.appendBytes(entry, make([]byte, gap)); err != nil {
			return 0, err
		}
	}

	remaining := src
	cursor := uint64(offset)
	var fileOffset uint64
	written := 0

	for i := range entry.Data {
		if len(remaining) == 0 {
			break
		}
		loc := &entry.Data[i]
		locEnd := fileOffset + loc.Size

		if cursor >= fileOffset && cursor < locEnd {
			inLocOffset := cursor - fileOffset
			n := loc.Size - inLocOffset
			if uint64(len(remaining)) < n {
				n = uint64(len(remaining))
			}

			if _, err := fs.blocks.WriteAt(blockIDOf(*loc), loc.Offset+inLocOffset, remaining[:n]); err != nil {
				return written, err
			}

			remaining = remaining[n:]
			cursor += n
			written += int(n)
		}

		fileOffset = locEnd
	}

	if len(remaining) > 0 {
		n, err := fs.appendBytes(entry, remaining)
		if err != nil {
			return written, err
		}
		written += n
	}

	now := fsentry.FromTime(fs.clock.Now())
	entry.Attr.Mtime = now
	entry.Attr.Ctime = now
	entry.Attr.Size = entry.Size()

	return written, nil
}

// appendBytes allocates fresh blocks for data and appends the
// resulting extents to entry.Data.
func (fs *MessengerFS) appendBytes(entry *fsentry.FileSystemEntry, data []byte) (int, error) {
	locs, err := fs.blocks.Alloc(data)
	if err != nil {
		return 0, err
	}
	entry.Data = append(entry.Data, locs...)
	return len(data), nil
}
