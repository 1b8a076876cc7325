// Package vfs provides the filesystem abstraction behind SST files.
//
// This allows talus to:
//   - use the real OS filesystem in production,
//   - use a memory filesystem for testing.
//
// The contract is deliberately narrow: SSTs are written once with Create
// and read back with random-access Read(offset, length). Nothing assumes
// memory-mapped, positional, or streaming semantics.
package vfs

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// ErrShortRead indicates a Read reached past the end of the file.
var ErrShortRead = errors.New("vfs: read out of range")

// FS is the filesystem interface.
type FS interface {
	// Create writes a finalized file in one shot and returns a handle
	// open for reading. An existing file is replaced.
	Create(name string, data []byte) (File, error)

	// Open opens an existing file for random-access reading.
	Open(name string) (File, error)

	// Remove deletes a file.
	Remove(name string) error

	// Exists returns true if the file exists.
	Exists(name string) bool

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// List returns the names (not paths) of the entries in a directory.
	List(dir string) ([]string, error)
}

// File is an immutable, randomly readable file.
type File interface {
	// Read returns length bytes starting at offset.
	Read(offset, length uint64) ([]byte, error)

	// Size returns the file size in bytes.
	Size() uint64

	// Close releases the handle.
	Close() error
}

// osFS implements FS on the operating system's filesystem.
type osFS struct{}

// Default returns the OS filesystem.
func Default() FS {
	return osFS{}
}

func (osFS) Create(name string, data []byte) (File, error) {
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return nil, errors.Wrapf(err, "vfs: create %s", name)
	}
	return osFS{}.Open(name)
}

func (osFS) Open(name string) (File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: open %s", name)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "vfs: stat %s", name)
	}
	return &osFile{f: f, size: uint64(info.Size())}, nil
}

func (osFS) Remove(name string) error {
	return os.Remove(name)
}

func (osFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (osFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (osFS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: list %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Base(e.Name()))
	}
	return names, nil
}

// osFile is a random-access handle on an OS file.
type osFile struct {
	f    *os.File
	size uint64
}

func (f *osFile) Read(offset, length uint64) ([]byte, error) {
	if offset+length > f.size {
		return nil, errors.Wrapf(ErrShortRead, "[%d, %d) in file of %d bytes", offset, offset+length, f.size)
	}
	buf := make([]byte, length)
	if _, err := f.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, errors.Wrap(err, "vfs: read")
	}
	return buf, nil
}

func (f *osFile) Size() uint64 {
	return f.size
}

func (f *osFile) Close() error {
	return f.f.Close()
}
