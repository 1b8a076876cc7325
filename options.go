package taluskv

import (
	"github.com/talusdb/taluskv/internal/logging"
	"github.com/talusdb/taluskv/internal/vfs"
)

// Options configures a Storage.
type Options struct {
	// Dir is the directory holding the SST files.
	Dir string

	// BlockSize is the target size for SST data blocks (default: 4KB).
	BlockSize int

	// MemTableSize is the mem-table size threshold, in raw key+value
	// bytes, past which the active mem-table is frozen (default: 4MB).
	MemTableSize int64

	// BlockCacheSize is the block-cache capacity in bytes (default: 32MB).
	BlockCacheSize uint64

	// DisableBlockCache bypasses the block cache entirely.
	DisableBlockCache bool

	// FS is the filesystem backend (default: the OS filesystem).
	FS vfs.FS

	// Logger receives freeze/flush events (default: discard).
	Logger logging.Logger
}

// withDefaults fills unset fields, leaving the receiver untouched.
func (o Options) withDefaults() Options {
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.MemTableSize <= 0 {
		o.MemTableSize = 4 << 20
	}
	if o.BlockCacheSize == 0 {
		o.BlockCacheSize = 32 << 20
	}
	if o.FS == nil {
		o.FS = vfs.Default()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard
	}
	return o
}
