package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// FileBlob keeps a document in a single file on local disk. Writes go through
// a temp file and rename so readers never observe a partial file.
type FileBlob struct {
	path string
}

// NewFileBlob prepares the parent directory of path.
func NewFileBlob(path string) (*FileBlob, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBlob{path: path}, nil
}

// Path returns the backing file path.
func (f *FileBlob) Path() string {
	return f.path
}

func (f *FileBlob) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileBlob) Write(_ context.Context, data []byte) error {
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	// atomic.WriteFile keeps the temp file mode on new files
	if err := os.Chmod(f.path, filePerms); err != nil {
		return fmt.Errorf("chmod %s: %w", f.path, err)
	}
	return nil
}

// Ping checks that the data directory is still reachable.
func (f *FileBlob) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(f.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(f.path))
	}
	return nil
}
