// Package store opens record sources and output sinks. Sources and sinks
// live on the local filesystem or in an S3-compatible object store, and are
// transparently compressed according to their extension.
package store

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/gcbaptista/go-letor/internal/codec"
	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/internal/persistence"
	"github.com/gcbaptista/go-letor/model"
)

// Source is a named stream of LETOR lines. Re-openable sources return a
// fresh stream on every Open.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a local file, decompressing by extension.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return s.Path }

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	return decompress(f, s.Path)
}

// ObjectSource reads one object from a bucket.
type ObjectSource struct {
	Client *minio.Client
	Bucket string
	Key    string
}

func (s *ObjectSource) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

func (s *ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, s.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the codec sees it.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("stat %s: %w", s.Name(), err)
	}
	return decompress(obj, s.Key)
}

// ReaderSource wraps a single-use reader such as stdin. A second Open
// fails with ErrSourceConsumed.
type ReaderSource struct {
	name   string
	r      io.Reader
	mu     sync.Mutex
	opened bool
}

// NewReaderSource creates a single-use source.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

func (s *ReaderSource) Name() string { return s.name }

func (s *ReaderSource) Open(_ context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, fmt.Errorf("%s: %w", s.name, errors.ErrSourceConsumed)
	}
	s.opened = true
	return decompress(io.NopCloser(s.r), s.name)
}

// decompress wraps rc by the compression implied by name. Closing the
// result closes both layers.
func decompress(rc io.ReadCloser, name string) (io.ReadCloser, error) {
	compression := persistence.CompressionFromPath(name)
	zr, err := persistence.NewReader(rc, compression)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &layeredReader{Reader: zr, inner: zr, outer: rc}, nil
}

type layeredReader struct {
	io.Reader
	inner io.Closer
	outer io.Closer
}

func (r *layeredReader) Close() error {
	innerErr := r.inner.Close()
	if err := r.outer.Close(); err != nil {
		return err
	}
	return innerErr
}

// Records lazily parses a source. Each iteration opens the source again,
// so re-openable sources can be iterated more than once. Iteration stops
// after yielding the first error.
func Records(ctx context.Context, src Source) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		rc, err := src.Open(ctx)
		if err != nil {
			yield(model.Record{}, err)
			return
		}
		defer func() { _ = rc.Close() }()

		for rec, err := range codec.NewReader(rc, src.Name()).All() {
			if err == nil {
				err = ctx.Err()
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Load materializes a source into a Dataset. The feature count is taken
// from the first record; any record with a different count is a format
// error. A source without records is an EmptyInputError.
func Load(ctx context.Context, src Source) (*model.Dataset, error) {
	return Collect(src.Name(), Records(ctx, src))
}

// Collect materializes a record sequence with the same checks as Load.
func Collect(name string, seq iter.Seq2[model.Record, error]) (*model.Dataset, error) {
	ds := &model.Dataset{Source: name}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		if len(ds.Records) == 0 {
			ds.FeatureCount = rec.FeatureCount()
		} else if rec.FeatureCount() != ds.FeatureCount {
			line := strings.TrimSuffix(codec.Serialize(rec), "\n")
			fe := errors.NewFormatError(line, fmt.Sprintf("expected %d features, got %d", ds.FeatureCount, rec.FeatureCount()))
			fe.Source = name
			return nil, fe
		}
		ds.Records = append(ds.Records, rec)
	}
	if len(ds.Records) == 0 {
		return nil, errors.NewEmptyInputError(name)
	}
	return ds, nil
}
