package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore persists uploaded vehicle images and returns a public URL for
// each stored object.
type ObjectStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalStore keeps objects on the local filesystem. Good enough for a single
// node; the interface leaves room for an S3-style backend later.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates a new local object store rooted at dir. Stored
// objects are addressable under baseURL.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dir returns the directory objects are stored in, for static file serving.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes the object under a random name, keeping the original extension.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// Delete removes the object a previously returned URL points at. Unknown
// URLs are ignored.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}
	name := path.Base(url)
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
