package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/errors"
)

const objectScheme = "s3://"

// ParseObjectLocation splits s3://bucket/key into its parts. ok is false
// for anything that is not an object location.
func ParseObjectLocation(loc string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(loc, objectScheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(loc, objectScheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(key, "/"), true
}

// Resolver turns user-supplied locations into sources and sinks. Local
// paths are resolved against Root when it is set and may not escape it.
type Resolver struct {
	Root   string
	Client *minio.Client
	Stdin  io.Reader
}

// NewResolver creates a Resolver. An object store client is only created
// when settings name an endpoint.
func NewResolver(root string, settings config.ObjectStoreSettings) (*Resolver, error) {
	r := &Resolver{Root: root, Stdin: os.Stdin}
	if !settings.Configured() {
		return r, nil
	}
	client, err := minio.New(settings.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure: settings.UseSSL,
		Region: settings.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	r.Client = client
	return r, nil
}

// Source resolves an input location. "-" reads stdin once.
func (r *Resolver) Source(loc string) (Source, error) {
	if loc == "-" {
		return NewReaderSource("stdin", r.Stdin), nil
	}
	if bucket, key, ok := ParseObjectLocation(loc); ok {
		if r.Client == nil {
			return nil, errors.NewConfigurationError("object_store.endpoint", nil, "required for "+loc)
		}
		if key == "" {
			return nil, errors.NewValidationError("input", "object location needs a key: "+loc)
		}
		return &ObjectSource{Client: r.Client, Bucket: bucket, Key: key}, nil
	}
	p, err := r.LocalPath(loc)
	if err != nil {
		return nil, err
	}
	return &FileSource{Path: p}, nil
}

// Sink resolves an output root.
func (r *Resolver) Sink(loc, compression string) (Sink, error) {
	if bucket, prefix, ok := ParseObjectLocation(loc); ok {
		if r.Client == nil {
			return nil, errors.NewConfigurationError("object_store.endpoint", nil, "required for "+loc)
		}
		return &ObjectSink{Client: r.Client, Bucket: bucket, Prefix: prefix, Compression: compression}, nil
	}
	p, err := r.LocalPath(loc)
	if err != nil {
		return nil, err
	}
	return &DirSink{Dir: p, Compression: compression}, nil
}

// LocalPath resolves p against Root. Without a Root, p is returned cleaned.
func (r *Resolver) LocalPath(p string) (string, error) {
	if r.Root == "" {
		return filepath.Clean(p), nil
	}
	if filepath.IsAbs(p) {
		return "", errors.NewValidationError("path", "must be relative to the data directory: "+p)
	}
	joined := filepath.Join(r.Root, p)
	rel, err := filepath.Rel(r.Root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError("path", "escapes the data directory: "+p)
	}
	return joined, nil
}
