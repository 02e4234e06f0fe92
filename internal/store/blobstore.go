package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore holds JPEG blobs on disk, one file per event, named by the
// owning event's id. Blobs are never garbage collected; they live as
// long as the log does.
type BlobStore struct {
	dir string
}

// NewBlobStore creates the blobs directory if needed
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blobs dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Put writes a blob under the given name
func (b *BlobStore) Put(name string, data []byte) error {
	path, err := b.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return nil
}

// Resolve maps a blob name to its on-disk path, rejecting anything
// that would escape the blobs directory
func (b *BlobStore) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid blob name: %q", name)
	}
	return filepath.Join(b.dir, name), nil
}

// Exists reports whether a blob with the given name is stored
func (b *BlobStore) Exists(name string) bool {
	path, err := b.Resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
