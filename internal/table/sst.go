// sst.go implements the SST reader: opening a table from a file handle and
// serving blocks out of it, optionally through the block cache.
package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/talusdb/taluskv/internal/block"
	"github.com/talusdb/taluskv/internal/cache"
	"github.com/talusdb/taluskv/internal/filter"
	"github.com/talusdb/taluskv/internal/vfs"
)

// ErrInvalidSST indicates a file that is not a valid SST: too short, a
// trailer pointing outside the file, or an empty or unsorted meta section.
var ErrInvalidSST = errors.New("table: invalid SST file")

// SST is an open sorted string table. Immutable and safe for concurrent
// use; iterators share it for their lifetime.
type SST struct {
	id         uint64
	file       vfs.File
	metas      []BlockMeta
	metaOffset uint64

	// bc, when non-nil, intercepts block reads with get-or-compute
	// semantics keyed by (id, block index).
	bc *cache.BlockCache

	// flt, when non-nil, pre-screens point lookups.
	flt *filter.Filter
}

// Open opens an SST from a file handle. The id identifies the table in the
// block cache; bc may be nil to bypass caching.
func Open(id uint64, bc *cache.BlockCache, file vfs.File) (*SST, error) {
	size := file.Size()
	if size < metaTrailerSize {
		return nil, errors.Wrapf(ErrInvalidSST, "%d byte file", size)
	}

	trailer, err := file.Read(size-metaTrailerSize, metaTrailerSize)
	if err != nil {
		return nil, err
	}
	metaOffset := binary.BigEndian.Uint64(trailer)
	if metaOffset > size-metaTrailerSize {
		return nil, errors.Wrapf(ErrInvalidSST, "meta offset %d past end of file", metaOffset)
	}

	metaBytes, err := file.Read(metaOffset, size-metaTrailerSize-metaOffset)
	if err != nil {
		return nil, err
	}
	metas, err := DecodeBlockMetas(metaBytes)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, errors.Wrap(ErrInvalidSST, "no data blocks")
	}
	for i, m := range metas {
		if m.Offset >= metaOffset || (i > 0 && m.Offset <= metas[i-1].Offset) {
			return nil, errors.Wrapf(ErrInvalidSST, "block %d offset %d out of order", i, m.Offset)
		}
	}

	return &SST{
		id:         id,
		file:       file,
		metas:      metas,
		metaOffset: metaOffset,
		bc:         bc,
	}, nil
}

// ID returns the table identifier.
func (t *SST) ID() uint64 {
	return t.id
}

// NumBlocks returns the number of data blocks.
func (t *SST) NumBlocks() int {
	return len(t.metas)
}

// FirstKey returns the smallest key in the table.
func (t *SST) FirstKey() []byte {
	return t.metas[0].FirstKey
}

// AttachFilter associates a bloom filter with the table. Called by the
// builder, or after loading a filter sidecar.
func (t *SST) AttachFilter(f *filter.Filter) {
	t.flt = f
}

// MayContain returns false only when the table's filter rules the key out.
// Tables without a filter always answer true.
func (t *SST) MayContain(key []byte) bool {
	return t.flt == nil || t.flt.MayContain(key)
}

// ReadBlock returns data block idx, consulting the block cache first when
// one is attached.
// REQUIRES: 0 <= idx < NumBlocks().
func (t *SST) ReadBlock(idx int) (*block.Block, error) {
	if idx < 0 || idx >= len(t.metas) {
		panic(fmt.Sprintf("table: block index %d out of range [0, %d)", idx, len(t.metas)))
	}

	if t.bc == nil {
		return t.readBlockUncached(idx)
	}

	key := cache.Key{TableID: t.id, BlockIndex: idx}
	if blk, ok := t.bc.Lookup(key); ok {
		return blk, nil
	}
	blk, err := t.readBlockUncached(idx)
	if err != nil {
		return nil, err
	}
	t.bc.Insert(key, blk)
	return blk, nil
}

// readBlockUncached fetches and decodes block idx from the file. The block
// ends where its successor begins; the last block ends at the meta section.
func (t *SST) readBlockUncached(idx int) (*block.Block, error) {
	start := t.metas[idx].Offset
	end := t.metaOffset
	if idx+1 < len(t.metas) {
		end = t.metas[idx+1].Offset
	}
	data, err := t.file.Read(start, end-start)
	if err != nil {
		return nil, err
	}
	return block.Decode(data)
}

// FindBlockIdx returns the candidate block for key: the last block whose
// first key is <= key. When key sorts before every first key the answer is
// block 0; when it sorts after every first key the answer is the last
// block, whose iterator fails over to invalid if the key is absent. The
// result is always a valid index.
func (t *SST) FindBlockIdx(key []byte) int {
	// First block whose first key is strictly greater than key; the
	// candidate sits immediately before it.
	i := sort.Search(len(t.metas), func(i int) bool {
		return bytes.Compare(t.metas[i].FirstKey, key) > 0
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// Close releases the underlying file handle.
func (t *SST) Close() error {
	return t.file.Close()
}
