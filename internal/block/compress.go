package block

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// compress gzips src at the library's default compression level, the
// same tradeoff the original Rust implementation made with its flate2
// dependency: favor upload latency over ratio, since blocks are capped
// at block_size and uploaded one at a time.
func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("block: creating gzip writer: %w", err)
	}

	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("block: compressing block: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("block: finalizing compressed block: %w", err)
	}

	return buf.Bytes(), nil
}

// decompress reverses compress.
func decompress(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("block: creating gzip reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("block: decompressing block: %w", err)
	}
	return out, nil
}
