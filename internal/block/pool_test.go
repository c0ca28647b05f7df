package block

import (
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davlia-projects/messenger-fs/internal/ferrors"
	"github.com/davlia-projects/messenger-fs/internal/messenger"
)

// fakeClient is a minimal in-memory stand-in for messenger.Client, used
// here instead of importing messengertest to keep this package's test
// dependencies one-directional.
type fakeClient struct {
	nextID      int
	attachments map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{attachments: make(map[string][]byte)}
}

func (f *fakeClient) Authenticate(context.Context, messenger.Credentials) error { return nil }
func (f *fakeClient) MyThreadID(context.Context) (string, error)               { return "thread-1", nil }
func (f *fakeClient) PostMessage(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeClient) PostAttachment(_ context.Context, _ string, payload string) (string, error) {
	f.nextID++
	id := "msg-" + string(rune('a'+f.nextID))
	f.attachments[id] = []byte(payload)
	return id, nil
}

func (f *fakeClient) GetMessage(_ context.Context, messageID string) (messenger.Message, error) {
	return messenger.Message{
		ID:          messageID,
		Attachments: []messenger.Attachment{{URL: "https://example.com/" + messageID}},
	}, nil
}

func (f *fakeClient) GetLatestMessage(context.Context) (messenger.Message, error) {
	return messenger.Message{}, nil
}

func (f *fakeClient) FetchAttachment(_ context.Context, url string) ([]byte, error) {
	for id, payload := range f.attachments {
		if url == "https://example.com/"+id {
			return payload, nil
		}
	}
	return nil, ferrors.NotFound
}

func TestPoolAllocFillsSingleBlock(t *testing.T) {
	p := NewPool(16, 0, newFakeClient(), "thread-1")

	locs, err := p.Alloc([]byte("hello world"))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uint64(0), locs[0].Offset)
	assert.Equal(t, uint64(11), locs[0].Size)
}

func TestPoolAllocSpansMultipleBlocks(t *testing.T) {
	p := NewPool(4, 0, newFakeClient(), "thread-1")

	locs, err := p.Alloc([]byte("0123456789"))
	require.NoError(t, err)

	var total uint64
	for _, l := range locs {
		total += l.Size
	}
	assert.Equal(t, uint64(10), total)
	assert.Equal(t, 3, p.Len())
}

func TestPoolAllocReusesBlockWithMostRoom(t *testing.T) {
	p := NewPool(10, 0, newFakeClient(), "thread-1")

	_, err := p.Alloc([]byte("abc")) // block 0: 3/10 used
	require.NoError(t, err)

	b1, err := p.createBlock() // block 1, empty, 10/10 available
	require.NoError(t, err)
	_ = b1

	locs, err := p.Alloc([]byte("xy"))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, ID(1), ID(locs[0].BlockID))
}

func TestPoolAllocRespectsMaxNumBlocks(t *testing.T) {
	p := NewPool(4, 1, newFakeClient(), "thread-1")

	_, err := p.Alloc([]byte("abcd"))
	require.NoError(t, err)

	_, err = p.Alloc([]byte("e"))
	assert.ErrorIs(t, err, ferrors.Exhausted)
}

func TestPoolSyncUploadsDirtyBlocksAndAllowsReadBack(t *testing.T) {
	client := newFakeClient()
	p := NewPool(16, 0, client, "thread-1")

	locs, err := p.Alloc([]byte("persisted bytes"))
	require.NoError(t, err)

	require.NoError(t, p.Sync(context.Background()))

	b := p.Get(ID(locs[0].BlockID))
	assert.False(t, b.IsDirty())
	url, ok := b.URL()
	assert.True(t, ok)
	assert.NotEmpty(t, url)

	b.Evict()
	data, err := p.Read(context.Background(), ID(locs[0].BlockID), locs[0].Offset, locs[0].Size)
	require.NoError(t, err)
	assert.Equal(t, "persisted bytes", string(data))
}

func TestPoolWriteAtOverwritesExistingExtent(t *testing.T) {
	p := NewPool(16, 0, newFakeClient(), "thread-1")

	locs, err := p.Alloc([]byte("abcdef"))
	require.NoError(t, err)

	n, err := p.WriteAt(ID(locs[0].BlockID), 1, []byte("XY"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := p.Read(context.Background(), ID(locs[0].BlockID), 0, 6)
	require.NoError(t, err)
	assert.Equal(t, "aXYdef", string(data))
}

// sanity-check that compress/decompress round-trip through gzip, since
// encodeBlob/decodeBlob are exercised only indirectly above.
func TestCompressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("payload"), 100)

	compressed, err := compress(raw)
	require.NoError(t, err)

	// sanity: it really is gzip.
	_, err = gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)

	out, err := decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
