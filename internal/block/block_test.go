package block

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockFillRespectsCapacity(t *testing.T) {
	b := newBlock(0, 4)

	n := b.Fill([]byte("hello"))
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(4), b.Used())
	assert.Equal(t, uint64(0), b.Available())
	assert.True(t, b.IsDirty())
}

func TestBlockFillAccumulates(t *testing.T) {
	b := newBlock(0, 10)

	assert.Equal(t, 3, b.Fill([]byte("abc")))
	assert.Equal(t, 3, b.Fill([]byte("def")))
	assert.Equal(t, uint64(6), b.Used())
	assert.Equal(t, uint64(4), b.Available())
}

func TestBlockWriteAtOverwritesInPlace(t *testing.T) {
	b := newBlock(0, 10)
	b.Fill([]byte("abcdef"))

	n := b.WriteAt(2, []byte("XY"))
	require.Equal(t, 2, n)

	data, err := b.Bytes(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "abXYef", string(data))
}

func TestBlockWriteAtGrowsFillLevel(t *testing.T) {
	b := newBlock(0, 10)
	b.Fill([]byte("ab"))

	n := b.WriteAt(4, []byte("Z"))
	require.Equal(t, 1, n)
	assert.Equal(t, uint64(5), b.Used())
}

func TestBlockWriteAtClampsToCapacity(t *testing.T) {
	b := newBlock(0, 4)

	n := b.WriteAt(2, []byte("abcdef"))
	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(4), b.Used())
}

func TestBlockEvictPagesInFromFetcher(t *testing.T) {
	b := newBlock(0, 10)
	b.Fill([]byte("hello"))
	b.MarkUploaded("https://example.com/blob")
	assert.False(t, b.IsDirty())

	b.Evict()
	assert.Equal(t, uint64(5), b.Used())

	fetchCalls := 0
	fetch := func(_ context.Context, url string) ([]byte, error) {
		fetchCalls++
		assert.Equal(t, "https://example.com/blob", url)
		return []byte("hello"), nil
	}

	data, err := b.Bytes(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 1, fetchCalls)
}

func TestBlockBytesWithNoDataOrURL(t *testing.T) {
	b := newBlock(0, 10)

	_, err := b.Bytes(context.Background(), func(context.Context, string) ([]byte, error) {
		t.Fatal("fetch should not be called")
		return nil, nil
	})
	assert.Error(t, err)
}
