package calib

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store is a key-value calibration object source. Objects are addressed by a
// slash-separated path and a validity timestamp; metadata narrows the lookup
// (e.g. RecoPassName). A missing object is reported as found=false with a nil
// error — the caller decides whether that is fatal.
type Store interface {
	Fetch(path string, timestamp int64, meta map[string]string) (data []byte, found bool, err error)
}

// MemStore is an in-memory Store, used for tests and for the built-in
// default calibration. Timestamps and metadata are ignored.
type MemStore struct {
	objects map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Put stores raw object bytes under a path.
func (m *MemStore) Put(path string, data []byte) {
	m.objects[path] = data
}

func (m *MemStore) Fetch(path string, _ int64, _ map[string]string) ([]byte, bool, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// FileStore serves calibration objects from a local directory tree that
// mirrors the store paths. An object at path "TOF/Calib/Params" is read from
// <root>/TOF/Calib/Params.yaml. Timestamps and metadata are ignored: a local
// snapshot is a single validity interval.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("calibration store root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("calibration store root %q is not a directory", dir)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) Fetch(path string, _ int64, _ map[string]string) ([]byte, bool, error) {
	full := filepath.Join(f.root, filepath.FromSlash(path)+".yaml")
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading calibration object %q: %w", path, err)
	}
	return data, true, nil
}
