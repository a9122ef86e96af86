package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/avyrss/internal/domain"
)

// LocalBackend stores blobs as files under a root directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend returns a backend rooted at dir. The directory is created on first write.
func NewLocalBackend(dir string) *LocalBackend {
	return &LocalBackend{root: filepath.Clean(dir)}
}

func (b *LocalBackend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

func (b *LocalBackend) Read(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", b.path(key), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path(key), err)
	}
	return data, nil
}

// Write writes to a temporary sibling and renames it into place, so readers never
// observe a partially written file.
func (b *LocalBackend) Write(_ context.Context, key string, data []byte) error {
	dest := b.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close() //nolint:errcheck // chmod error takes precedence
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

func (b *LocalBackend) List(_ context.Context, prefix string) ([]string, error) {
	dir := b.path(prefix)
	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *LocalBackend) MakeDirs(_ context.Context, prefix string) error {
	if err := os.MkdirAll(b.path(prefix), 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", b.path(prefix), err)
	}
	return nil
}

func (b *LocalBackend) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", b.path(key), err)
	}
	return true, nil
}

func (b *LocalBackend) Location(key string) string {
	return b.path(key)
}

func (b *LocalBackend) URI() string {
	return fileURI(b.root)
}
