package history

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBackend stores each record as <dir>/<key>.json on an afero filesystem.
type FileBackend struct {
	fs  afero.Fs
	dir string
}

// NewFileBackend returns a backend rooted at dir on the given filesystem.
func NewFileBackend(fsys afero.Fs, dir string) *FileBackend {
	return &FileBackend{fs: fsys, dir: dir}
}

// NewOSFileBackend returns a backend on the host filesystem.
func NewOSFileBackend(dir string) *FileBackend {
	return NewFileBackend(afero.NewOsFs(), dir)
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Get reads the record stored under key.
func (b *FileBackend) Get(key string) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put replaces the record stored under key. The write goes to a temporary
// file first so a failed write never truncates the previous record.
func (b *FileBackend) Put(key string, value []byte) error {
	if err := b.fs.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	final := b.path(key)
	tmp := final + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, value, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := b.fs.Rename(tmp, final); err != nil {
		_ = b.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}
