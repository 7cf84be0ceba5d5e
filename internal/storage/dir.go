package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirStorage writes snapshots below a local directory. It is used when no
// object store is configured.
type DirStorage struct {
	root string
}

// NewDirStorage returns storage rooted at dir.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{root: dir}
}

// Save writes r to name below the root and returns the file path.
func (d *DirStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	key := strings.TrimLeft(filepath.Clean("/"+name), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("dir storage: empty key")
	}

	path := filepath.Join(d.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("dir storage: create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("dir storage: create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("dir storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("dir storage: close %s: %w", key, err)
	}
	return path, nil
}
