package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"SigAgg/internal/storage"
)

// artifactExt is the file extension of file-backed artifacts.
const artifactExt = ".bin"

// Store persists artifacts by name.
type Store interface {
	// Get returns the artifact for name, or nil if absent.
	Get(name string) ([]byte, error)

	// Put replaces the artifact for name. A reader never observes a partial write.
	Put(name string, data []byte) error

	// Delete removes the artifact for name. Deleting a missing artifact is not an error.
	Delete(name string) error

	// List returns the stored artifact names in sorted order.
	List() ([]string, error)

	// Close releases the store.
	Close() error
}

// FileStore keeps one file per artifact in a directory.
type FileStore struct {
	dir string // dir is the artifact directory
}

// NewFileStore creates dir if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s:\n%w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

// Path returns the file path of the artifact for name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+artifactExt)
}

// Get reads the artifact file.
func (s *FileStore) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s:\n%w", name, err)
	}

	return data, nil
}

// Put writes to a temporary file in the same directory and renames it into
// place. The temporary file is removed on every failure path.
func (s *FileStore) Put(name string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact:\n%w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write artifact %s:\n%w", name, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync artifact %s:\n%w", name, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close artifact %s:\n%w", name, err)
	}

	if err = os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("rename artifact %s:\n%w", name, err)
	}

	return nil
}

// Delete removes the artifact file.
func (s *FileStore) Delete(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete artifact %s:\n%w", name, err)
	}

	return nil
}

// List returns the names of artifact files, skipping temporary files.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir %s:\n%w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), artifactExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), artifactExt))
	}

	sort.Strings(names)

	return names, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

// pebbleKeyPrefix namespaces artifacts inside the pebble database.
var pebbleKeyPrefix = []byte("cache:")

// PebbleStore keeps artifacts in a pebble database.
type PebbleStore struct {
	db *storage.Storage // db is the underlying key-value store
}

// NewPebbleStore opens the pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pebble cache:\n%w", err)
	}

	return &PebbleStore{db: db}, nil
}

// pebbleKey returns the database key for name.
func pebbleKey(name string) []byte {
	return append(append([]byte{}, pebbleKeyPrefix...), name...)
}

// Get reads the artifact.
func (s *PebbleStore) Get(name string) ([]byte, error) {
	return s.db.Get(pebbleKey(name))
}

// Put writes the artifact. Pebble writes are atomic per key.
func (s *PebbleStore) Put(name string, data []byte) error {
	return s.db.Set(pebbleKey(name), data)
}

// Delete removes the artifact.
func (s *PebbleStore) Delete(name string) error {
	return s.db.Delete(pebbleKey(name))
}

// List returns stored artifact names in key order.
func (s *PebbleStore) List() ([]string, error) {
	var names []string

	err := s.db.IteratePrefix(pebbleKeyPrefix, func(key, _ []byte) error {
		names = append(names, string(key[len(pebbleKeyPrefix):]))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pebble cache:\n%w", err)
	}

	return names, nil
}

// Clear removes every artifact.
func (s *PebbleStore) Clear() error {
	return s.db.DeletePrefix(pebbleKeyPrefix)
}

// Close syncs and closes the database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
