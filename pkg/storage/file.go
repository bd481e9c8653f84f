package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when an artifact does not exist in the store
var ErrNotFound = errors.New("artifact not found")

// FileStore reads artifacts from a local directory
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Open returns a reader for the named artifact. The caller closes it.
func (s *FileStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path := filepath.Join(s.dir, filepath.Clean("/"+name))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	return f, nil
}
