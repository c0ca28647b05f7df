package block

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/davlia-projects/messenger-fs/internal/fsentry"
	"github.com/davlia-projects/messenger-fs/internal/ferrors"
	"github.com/davlia-projects/messenger-fs/internal/messenger"
)

// Pool owns every Block for one filesystem and the single messenger
// thread they're uploaded to. It is not internally synchronized: callers
// (internal/messengerfs) serialize access to it behind their own
// syncutil.InvariantMutex, the same single-writer discipline
// repo applies to its inode tree.
type Pool struct {
	arena        map[ID]*Block
	order        []ID // insertion order, for deterministic snapshot iteration
	nextID       ID
	blockSize    uint64
	maxNumBlocks int

	client   messenger.Client
	threadID string
}

// NewPool returns an empty pool. blockSize is the fixed capacity of
// every block; maxNumBlocks enforces the total storage ceiling as a
// hard limit — exceeding it returns ferrors.Exhausted rather than
// silently growing without bound.
func NewPool(blockSize uint64, maxNumBlocks int, client messenger.Client, threadID string) *Pool {
	return &Pool{
		arena:        make(map[ID]*Block),
		blockSize:    blockSize,
		maxNumBlocks: maxNumBlocks,
		client:       client,
		threadID:     threadID,
	}
}

// Get returns the block with the given id, or nil if unknown.
func (p *Pool) Get(id ID) *Block {
	return p.arena[id]
}

// Len reports the number of blocks currently in the pool.
func (p *Pool) Len() int {
	return len(p.arena)
}

// MaxBlocks reports the pool's configured block ceiling, or 0 if
// unbounded.
func (p *Pool) MaxBlocks() int {
	return p.maxNumBlocks
}

// BlockSize reports the fixed capacity of every block in the pool.
func (p *Pool) BlockSize() uint64 {
	return p.blockSize
}

func (p *Pool) createBlock() (*Block, error) {
	if p.maxNumBlocks > 0 && len(p.arena) >= p.maxNumBlocks {
		return nil, ferrors.Exhausted
	}

	id := p.nextID
	p.nextID++

	b := newBlock(id, p.blockSize)
	p.arena[id] = b
	p.order = append(p.order, id)
	return b, nil
}

// blockHeap orders live blocks by descending Available(), the "greatest
// available capacity" selection policy from the original block.rs,
// which used a std::collections::BinaryHeap over a custom Ord impl for
// the same purpose: reuse the block that wastes the least space for an
// incoming write before minting a new one.
type blockHeap []*Block

func (h blockHeap) Len() int            { return len(h) }
func (h blockHeap) Less(i, j int) bool  { return h[i].Available() > h[j].Available() }
func (h blockHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *blockHeap) Push(x any)         { *h = append(*h, x.(*Block)) }
func (h *blockHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// blockWithRoom returns a block with at least one free byte, preferring
// an existing block with the greatest available capacity over creating
// a new one. Returns ferrors.Exhausted if the pool is full and no
// existing block has room.
func (p *Pool) blockWithRoom() (*Block, error) {
	h := make(blockHeap, 0, len(p.arena))
	for _, b := range p.arena {
		if b.Available() > 0 {
			h = append(h, b)
		}
	}
	heap.Init(&h)

	if h.Len() > 0 {
		return h[0], nil
	}

	return p.createBlock()
}

// Alloc writes data into the pool, creating and filling blocks in
// order, and returns the list of extents describing where the bytes
// landed. This is the Go shape of the original block.rs's find(): full
// blocks are minted for whole block_size chunks, then the remainder is
// packed into the block with the most free space, or a fresh one.
func (p *Pool) Alloc(data []byte) ([]fsentry.DataLoc, error) {
	var locs []fsentry.DataLoc

	for len(data) > 0 {
		var b *Block
		var err error
		if uint64(len(data)) > p.blockSize {
			b, err = p.createBlock()
		} else if b, err = p.blockWithRoom(); err == nil && b.Available() < uint64(len(data)) {
			b, err = p.createBlock()
		}
		if err != nil {
			return locs, err
		}

		offset := b.Used()
		n := b.Fill(data)
		if n == 0 {
			return locs, fmt.Errorf("%w: block %d reports no room after selection", ferrors.Fatal, b.ID())
		}

		locs = append(locs, fsentry.DataLoc{
			BlockID: uint64(b.ID()),
			Offset:  offset,
			Size:    uint64(n),
		})
		data = data[n:]
	}

	return locs, nil
}

// WriteAt overwrites length bytes at blockOffset within block id,
// marking it dirty. Used by messengerfs's full byte-range overwrite
// path when a write falls within an existing extent rather than
// appending a new one.
func (p *Pool) WriteAt(id ID, blockOffset uint64, src []byte) (int, error) {
	b, ok := p.arena[id]
	if !ok {
		return 0, fmt.Errorf("%w: block %d", ferrors.NotFound, id)
	}
	return b.WriteAt(blockOffset, src), nil
}

// Read returns length bytes starting at blockOffset within block id,
// paging the block in from the messenger if it has been evicted.
func (p *Pool) Read(ctx context.Context, id ID, blockOffset, length uint64) ([]byte, error) {
	b, ok := p.arena[id]
	if !ok {
		return nil, fmt.Errorf("%w: block %d", ferrors.NotFound, id)
	}

	data, err := b.Bytes(ctx, p.fetch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ferrors.IoFailed, err)
	}

	end := blockOffset + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	if blockOffset > end {
		return nil, nil
	}
	return data[blockOffset:end], nil
}

func (p *Pool) fetch(ctx context.Context, url string) ([]byte, error) {
	raw, err := p.client.FetchAttachment(ctx, url)
	if err != nil {
		return nil, err
	}
	return decodeBlob(raw)
}

// Sync uploads every dirty block's bytes as a compressed attachment on
// the pool's messenger thread, recording the resulting URL. This is a
// two-step post: messenger.Client.PostAttachment returns only a message
// ID, so the block's URL is recovered by fetching that message back and
// reading its first attachment.
func (p *Pool) Sync(ctx context.Context) error {
	for _, id := range p.order {
		b := p.arena[id]
		if !b.IsDirty() {
			continue
		}

		payload, err := encodeBlob(b.data)
		if err != nil {
			return fmt.Errorf("%w: encoding block %d: %v", ferrors.IoFailed, id, err)
		}

		msgID, err := p.client.PostAttachment(ctx, p.threadID, payload)
		if err != nil {
			return fmt.Errorf("%w: uploading block %d: %v", ferrors.IoFailed, id, err)
		}

		msg, err := p.client.GetMessage(ctx, msgID)
		if err != nil {
			return fmt.Errorf("%w: confirming upload of block %d: %v", ferrors.IoFailed, id, err)
		}
		if len(msg.Attachments) == 0 {
			return fmt.Errorf("%w: upload of block %d produced no attachment", ferrors.Fatal, id)
		}

		b.MarkUploaded(msg.Attachments[0].URL)
	}

	return nil
}

// SnapshotBlock is the serializable record of one block's bookkeeping,
// omitting in-memory bytes: a restored pool pages blocks in from the
// messenger lazily, the same way a freshly evicted block would.
type SnapshotBlock struct {
	ID   uint64 `yaml:"id"`
	URL  string `yaml:"url"`
	Used uint64 `yaml:"used"`
}

// ExportSnapshot returns the serializable state of every block in the
// pool, in insertion order. Must be called only after Sync has cleared
// all dirty blocks; a dirty block has no stable URL to persist.
func (p *Pool) ExportSnapshot() ([]SnapshotBlock, error) {
	out := make([]SnapshotBlock, 0, len(p.order))
	for _, id := range p.order {
		b := p.arena[id]
		if b.IsDirty() {
			return nil, fmt.Errorf("%w: block %d is dirty at snapshot time", ferrors.Fatal, id)
		}
		url, _ := b.URL()
		out = append(out, SnapshotBlock{ID: uint64(id), URL: url, Used: b.Used()})
	}
	return out, nil
}

// ImportSnapshot rebuilds the pool's block bookkeeping from a prior
// ExportSnapshot, without fetching any bytes. nextID is advanced past
// the highest restored block ID so newly allocated blocks never
// collide with restored ones.
func (p *Pool) ImportSnapshot(blocks []SnapshotBlock) {
	for _, sb := range blocks {
		b := newBlock(ID(sb.ID), p.blockSize)
		b.evictedUsed = sb.Used
		b.url = sb.URL
		b.dirty = false

		p.arena[b.id] = b
		p.order = append(p.order, b.id)

		if b.id >= p.nextID {
			p.nextID = b.id + 1
		}
	}
}

// encodeBlob compresses raw and maps the result onto a string using the
// identity byte-to-rune mapping: Go strings are
// themselves arbitrary byte sequences, so no further transcoding is
// needed beyond compression.
func encodeBlob(raw []byte) (string, error) {
	compressed, err := compress(raw)
	if err != nil {
		return "", err
	}
	return string(compressed), nil
}

// decodeBlob reverses encodeBlob.
func decodeBlob(raw []byte) ([]byte, error) {
	return decompress(raw)
}
