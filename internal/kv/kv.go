package kv

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persistence substrate: a whole-value string key-value store.
// Absence of a key is reported via ok=false, not an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// FileStore persists each key as a single file under a base directory.
// Writes go through a temp file + rename so readers never observe a partial
// value.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		// Caller should set this explicitly; we fall back to a relative dir
		// so that development runs without extra setup.
		dir = "./var/timedash/kv"
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) Get(key string) (string, bool, error) {
	path, err := s.pathForKey(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (s *FileStore) Set(key, value string) error {
	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".timedash-kv-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// pathForKey maps a key onto a stable file name. Keys are hashed so that
// arbitrary key strings never escape the base directory.
func (s *FileStore) pathForKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("kv: key is empty")
	}
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:8]) + ".json"
	return filepath.Join(s.dir, name), nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string

	// FailWrites makes every Set return an error, for exercising the
	// write-failure path.
	FailWrites bool
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errors.New("kv: write failed")
	}
	s.values[key] = value
	return nil
}
