// Package block implements the fixed-capacity storage units that back
// regular file bytes: in-memory buffers that are compressed and handed
// off to a messenger.Client as chat attachments on sync, and paged
// back in on demand when a read needs bytes that aren't cached locally.
//
// The state machine on Block mirrors the dirty-tracking split in the
// teacher's gcsproxy.MutableContent (internal/block/../..'s sibling
// concern): a block is either untouched-and-local, uploaded-and-clean,
// or dirty (local bytes ahead of whatever, if anything, is remote).
package block

import (
	"context"
	"fmt"
)

// ID identifies a block within a BlockPool. It is stored on
// fsentry.DataLoc.BlockID so file extents can find their backing block.
type ID uint64

// state is a three-way split:
// NeverUploaded, Uploaded and Dirty are collapsed here into a pair of
// flags (uploaded url + dirty bit) rather than a closed sum type, since
// Go has no tagged unions; the invariants below preserve the same
// meaning.
type Block struct {
	id       ID
	capacity uint64

	// data holds the block's bytes while they're resident in memory.
	// It is nil when the block's bytes have been uploaded and evicted
	// from local cache; FetchAttachment through BlockPool pages them
	// back in.
	data []byte

	// url is the remote attachment location, once this block has been
	// uploaded at least once. Empty string means never uploaded.
	url string

	// dirty is true when data holds bytes that haven't been pushed to
	// url yet (or there is no url at all). A freshly created block
	// with data but no url is dirty by definition.
	dirty bool

	// evictedUsed preserves the fill level across an Evict call, since
	// data is set to nil and len(data) can no longer answer Used.
	evictedUsed uint64
}

func newBlock(id ID, capacity uint64) *Block {
	return &Block{id: id, capacity: capacity}
}

// ID returns the block's identifier.
func (b *Block) ID() ID { return b.id }

// Used returns the number of bytes currently occupied in this block.
// Note this reflects the logical fill level, which is retained even
// while data is paged out (Used and Available don't depend on
// residency).
func (b *Block) Used() uint64 {
	if b.data != nil {
		return uint64(len(b.data))
	}
	return b.evictedUsed
}

// Available returns the remaining free capacity in this block.
func (b *Block) Available() uint64 {
	return b.capacity - b.Used()
}

// IsDirty reports whether this block has local bytes not yet reflected
// at URL (or has never been uploaded at all).
func (b *Block) IsDirty() bool {
	return b.dirty
}

// URL returns the block's remote attachment URL and whether it has
// ever been uploaded.
func (b *Block) URL() (string, bool) {
	return b.url, b.url != ""
}

// Fill appends as much of src as fits in the block's remaining
// capacity, returning the number of bytes consumed. The block is
// marked dirty. This is the Go analogue of the original block.rs's
// fill(), which drained a byte iterator up to available() bytes.
func (b *Block) Fill(src []byte) int {
	n := int(b.Available())
	if n > len(src) {
		n = len(src)
	}
	if n == 0 {
		return 0
	}

	b.data = append(b.data, src[:n]...)
	b.dirty = true
	return n
}

// WriteAt overwrites the region [offset, offset+len(src)) within this
// block's bytes, growing the block's fill level if the write extends
// past the current end but never past capacity. It returns the number
// of bytes actually written.
func (b *Block) WriteAt(offset uint64, src []byte) int {
	end := offset + uint64(len(src))
	if end > b.capacity {
		end = b.capacity
	}
	if offset >= end {
		return 0
	}
	n := int(end - offset)

	if grow := int(end) - len(b.data); grow > 0 {
		b.data = append(b.data, make([]byte, grow)...)
	}
	copy(b.data[offset:end], src[:n])
	b.dirty = true
	return n
}

// Bytes returns the block's resident bytes, fetching them from the
// remote store first if they've been evicted. fetch is called with the
// block's URL; pass a fetcher backed by messenger.Client.FetchAttachment
// and a decompressor — BlockPool wires this up so Block itself stays
// free of messenger/compression dependencies.
func (b *Block) Bytes(ctx context.Context, fetch func(ctx context.Context, url string) ([]byte, error)) ([]byte, error) {
	if b.data != nil {
		return b.data, nil
	}

	if b.url == "" {
		return nil, fmt.Errorf("block: block %d has no data and no url", b.id)
	}

	data, err := fetch(ctx, b.url)
	if err != nil {
		return nil, fmt.Errorf("block: paging in block %d: %w", b.id, err)
	}

	b.data = data
	return b.data, nil
}

// MarkUploaded records that the block's current bytes have been pushed
// to url, clearing the dirty bit. Called by BlockPool.Sync once the
// upload round-trip completes.
func (b *Block) MarkUploaded(url string) {
	b.url = url
	b.dirty = false
}

// Evict drops the block's in-memory bytes, keeping only its URL and
// fill-level bookkeeping. Only safe to call on a clean (non-dirty)
// block with a URL; Evict itself does not check this.
func (b *Block) Evict() {
	b.evictedUsed = uint64(len(b.data))
	b.data = nil
}
