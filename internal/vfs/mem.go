// mem.go implements the in-memory filesystem used by tests.
package vfs

import (
	"os"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemFS is an FS backed by process memory. Safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMem returns an empty memory filesystem.
func NewMem() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Create implements FS. The data slice is copied.
func (fs *MemFS) Create(name string, data []byte) (File, error) {
	buf := append([]byte(nil), data...)
	fs.mu.Lock()
	fs.files[clean(name)] = buf
	fs.mu.Unlock()
	return &memFile{data: buf}, nil
}

// Open implements FS. The returned handle sees the contents at open time;
// a later Create of the same name does not affect it.
func (fs *MemFS) Open(name string) (File, error) {
	fs.mu.RLock()
	data, ok := fs.files[clean(name)]
	fs.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "vfs: open %s", name)
	}
	return &memFile{data: data}, nil
}

// Remove implements FS.
func (fs *MemFS) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[clean(name)]; !ok {
		return errors.Wrapf(os.ErrNotExist, "vfs: remove %s", name)
	}
	delete(fs.files, clean(name))
	return nil
}

// Exists implements FS.
func (fs *MemFS) Exists(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.files[clean(name)]
	return ok
}

// MkdirAll implements FS. Directories are implicit in a flat namespace.
func (fs *MemFS) MkdirAll(string, os.FileMode) error {
	return nil
}

// List implements FS.
func (fs *MemFS) List(dir string) ([]string, error) {
	prefix := clean(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	var names []string
	for name := range fs.files {
		if strings.HasPrefix(name, prefix) {
			names = append(names, path.Base(name))
		}
	}
	return names, nil
}

func clean(name string) string {
	return path.Clean(strings.ReplaceAll(name, "\\", "/"))
}

// memFile is a handle on an immutable byte snapshot.
type memFile struct {
	data []byte
}

func (f *memFile) Read(offset, length uint64) ([]byte, error) {
	if offset+length > uint64(len(f.data)) {
		return nil, errors.Wrapf(ErrShortRead, "[%d, %d) in file of %d bytes", offset, offset+length, len(f.data))
	}
	return f.data[offset : offset+length], nil
}

func (f *memFile) Size() uint64 {
	return uint64(len(f.data))
}

func (f *memFile) Close() error {
	return nil
}
