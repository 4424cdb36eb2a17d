package persistence

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/gcbaptista/go-letor/config"
)

var extensions = map[string]string{
	config.CompressionGzip: ".gz",
	config.CompressionZstd: ".zst",
	config.CompressionLZ4:  ".lz4",
}

// CompressionFromPath infers the compression of a file from its extension.
// Unknown extensions mean no compression.
func CompressionFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return config.CompressionGzip
	case ".zst", ".zstd":
		return config.CompressionZstd
	case ".lz4":
		return config.CompressionLZ4
	default:
		return config.CompressionNone
	}
}

// Extension returns the file suffix for a compression, or "" for none.
func Extension(compression string) string {
	return extensions[compression]
}

// NewReader wraps r with a decompressor. Closing the returned reader does
// not close r.
func NewReader(r io.Reader, compression string) (io.ReadCloser, error) {
	switch compression {
	case "", config.CompressionNone:
		return io.NopCloser(r), nil
	case config.CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	case config.CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	case config.CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

// NewWriter wraps w with a compressor. Close flushes the compressed stream
// but does not close w.
func NewWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case "", config.CompressionNone:
		return nopWriteCloser{w}, nil
	case config.CompressionGzip:
		return gzip.NewWriter(w), nil
	case config.CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd stream: %w", err)
		}
		return zw, nil
	case config.CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
