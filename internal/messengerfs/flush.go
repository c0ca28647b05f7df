package messengerfs

import (
	"context"
	"fmt"

	"github.com/davlia-projects/messenger-fs/internal/ferrors"
)

// Fsync pushes any dirty block bytes to the messenger without posting a
// new metadata snapshot. Real filesystems distinguish "make my data
// durable" (fsync) from "make my data and the directory entry durable"
// (flush on close), and jacobsa/fuse surfaces both as distinct ops, so
// Fsync skips the metadata snapshot Flush posts.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) Fsync(ctx context.Context) error {
	if err := fs.blocks.Sync(ctx); err != nil {
		return err
	}
	return nil
}

// Flush uploads any dirty blocks and then posts a fresh metadata
// snapshot to the self-conversation thread, the fs_flush behavior
// a real filesystem's flush-on-close convention describes.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) Flush(ctx context.Context) error {
	if err := fs.blocks.Sync(ctx); err != nil {
		return err
	}

	body, err := fs.Serialize()
	if err != nil {
		return fmt.Errorf("%w: serializing snapshot: %v", ferrors.Fatal, err)
	}

	if _, err := fs.client.PostAttachment(ctx, fs.threadID, body); err != nil {
		return fmt.Errorf("%w: posting snapshot: %v", ferrors.IoFailed, err)
	}

	return nil
}

// StatFSResult mirrors the subset of fuseops.StatFSOp's response fields
// this engine can meaningfully fill in: it has no fixed backing device
// size, so Blocks/BlocksFree report a synthetic ceiling derived from
// max_num_blocks so df-style tools show something other than zero.
// Grounded in a complete FUSE surface (fuseops.StatFSOp)
// and in imjching-sql-fs's Statfs handler, which likewise derives block
// and file counts from its own store's bookkeeping rather than a real
// device.
type StatFSResult struct {
	BlockSize  uint32
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	FilesFree  uint64
	NameLen    uint32
}

// StatFS reports filesystem-wide statistics.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *MessengerFS) StatFS() StatFSResult {
	total := fs.blocks.MaxBlocks()
	used := fs.blocks.Len()

	var free uint64
	if total > used {
		free = uint64(total - used)
	}

	return StatFSResult{
		BlockSize:  uint32(fs.blocks.BlockSize()),
		Blocks:     uint64(total),
		BlocksFree: free,
		Files:      uint64(len(fs.allIndices())),
		FilesFree:  free,
		NameLen:    255,
	}
}
