package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile is written to a temporary file next to its destination and
// renamed into place on Commit. Readers never observe a partial file.
type AtomicFile struct {
	tmp  *os.File
	path string
	done bool
}

// CreateAtomic creates the parent directory and a temporary file for path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	return &AtomicFile{tmp: tmp, path: path}, nil
}

// Write writes to the temporary file.
func (f *AtomicFile) Write(p []byte) (int, error) {
	return f.tmp.Write(p)
}

// Path returns the final destination.
func (f *AtomicFile) Path() string {
	return f.path
}

// Commit syncs and closes the temporary file, then renames it into place.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("atomic file already finished")
	}
	f.done = true

	if err := f.tmp.Sync(); err != nil {
		f.cleanup()
		return fmt.Errorf("failed to sync %s: %w", f.path, err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("failed to rename into %s: %w", f.path, err)
	}
	return nil
}

// Close commits the file. It exists so AtomicFile satisfies io.WriteCloser.
func (f *AtomicFile) Close() error {
	return f.Commit()
}

// Abort discards the temporary file. It is a no-op after Commit.
func (f *AtomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	f.cleanup()
	return nil
}

func (f *AtomicFile) cleanup() {
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}
