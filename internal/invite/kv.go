package invite

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileKV is a KV kept as one JSON object in a file. Writes go to a
// temporary file that is renamed over the original.
type FileKV struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileKV returns a KV backed by path on fs. The file is created on the
// first Set.
func NewFileKV(fs afero.Fs, path string) *FileKV {
	return &FileKV{fs: fs, path: path}
}

// Get returns the value stored under key.
func (k *FileKV) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, err := k.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set stores value under key.
func (k *FileKV) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, err := k.load()
	if err != nil {
		return err
	}
	m[key] = value
	return k.save(m)
}

// Delete removes key. Missing keys are not an error.
func (k *FileKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return k.save(m)
}

func (k *FileKV) load() (map[string]string, error) {
	b, err := afero.ReadFile(k.fs, k.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (k *FileKV) save(m map[string]string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := k.fs.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return err
	}
	tmp := k.path + ".tmp"
	if err := afero.WriteFile(k.fs, tmp, b, 0o600); err != nil {
		return err
	}
	return k.fs.Rename(tmp, k.path)
}
