package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/gcbaptista/go-letor/internal/persistence"
)

// Output is a pending sink entry. Nothing is visible at the destination
// until Close succeeds. Abort before Close discards everything written so
// far; Abort after a successful Close removes the committed entry, which
// lets a caller roll back a group of outputs when a later one fails.
type Output interface {
	io.WriteCloser
	Abort() error
	// Location is where the entry becomes visible after Close.
	Location() string
}

// Sink creates named outputs under a common root.
type Sink interface {
	Location() string
	Create(ctx context.Context, name string) (Output, error)
}

// DirSink writes files below Dir. The compression extension is appended
// to every name.
type DirSink struct {
	Dir         string
	Compression string
}

func (s *DirSink) Location() string { return s.Dir }

func (s *DirSink) Create(ctx context.Context, name string) (Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dest := filepath.Join(s.Dir, filepath.FromSlash(name)+persistence.Extension(s.Compression))
	file, err := persistence.CreateAtomic(dest)
	if err != nil {
		return nil, err
	}
	zw, err := persistence.NewWriter(file, s.Compression)
	if err != nil {
		_ = file.Abort()
		return nil, err
	}
	return &fileOutput{WriteCloser: zw, file: file}, nil
}

type fileOutput struct {
	io.WriteCloser
	file      *persistence.AtomicFile
	committed bool
}

func (o *fileOutput) Close() error {
	if err := o.WriteCloser.Close(); err != nil {
		_ = o.file.Abort()
		return fmt.Errorf("finish %s: %w", o.file.Path(), err)
	}
	if err := o.file.Commit(); err != nil {
		return err
	}
	o.committed = true
	return nil
}

func (o *fileOutput) Abort() error {
	if !o.committed {
		return o.file.Abort()
	}
	o.committed = false
	if err := os.Remove(o.file.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("roll back %s: %w", o.file.Path(), err)
	}
	return nil
}

func (o *fileOutput) Location() string { return o.file.Path() }

// ObjectSink uploads objects below Prefix in Bucket.
type ObjectSink struct {
	Client      *minio.Client
	Bucket      string
	Prefix      string
	Compression string
}

func (s *ObjectSink) Location() string { return "s3://" + path.Join(s.Bucket, s.Prefix) }

// Create starts a streaming upload. The object is only created when the
// upload completes; Abort fails the upload instead.
func (s *ObjectSink) Create(ctx context.Context, name string) (Output, error) {
	key := path.Join(s.Prefix, name) + persistence.Extension(s.Compression)
	pr, pw := io.Pipe()

	out := &objectOutput{
		client:   s.Client,
		bucket:   s.Bucket,
		key:      key,
		pw:       pw,
		done:     make(chan error, 1),
		location: "s3://" + s.Bucket + "/" + key,
	}
	zw, err := persistence.NewWriter(pw, s.Compression)
	if err != nil {
		return nil, err
	}
	out.zw = zw

	go func() {
		_, err := s.Client.PutObject(ctx, s.Bucket, key, pr, -1, minio.PutObjectOptions{ContentType: "text/plain"})
		_ = pr.CloseWithError(err)
		out.done <- err
	}()
	return out, nil
}

type objectOutput struct {
	client    *minio.Client
	bucket    string
	key       string
	committed atomic.Bool

	zw       io.WriteCloser
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
	location string
}

func (o *objectOutput) Write(p []byte) (int, error) {
	return o.zw.Write(p)
}

func (o *objectOutput) Close() error {
	if !o.finished.CompareAndSwap(false, true) {
		return errors.New("already closed")
	}
	if err := o.zw.Close(); err != nil {
		_ = o.pw.CloseWithError(err)
		<-o.done
		return err
	}
	if err := o.pw.Close(); err != nil {
		return err
	}
	if err := <-o.done; err != nil {
		return err
	}
	o.committed.Store(true)
	return nil
}

func (o *objectOutput) Abort() error {
	if o.committed.CompareAndSwap(true, false) {
		if err := o.client.RemoveObject(context.Background(), o.bucket, o.key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("roll back %s: %w", o.location, err)
		}
		return nil
	}
	if !o.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = o.pw.CloseWithError(errors.New("upload aborted"))
	<-o.done
	return nil
}

func (o *objectOutput) Location() string { return o.location }
