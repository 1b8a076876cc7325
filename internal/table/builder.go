// builder.go implements the SST builder: streaming sorted entries through
// an inner block builder, rotating blocks as they fill, and serializing
// the table in one shot through the file backend.
package table

import (
	"encoding/binary"

	"github.com/talusdb/taluskv/internal/block"
	"github.com/talusdb/taluskv/internal/cache"
	"github.com/talusdb/taluskv/internal/filter"
	"github.com/talusdb/taluskv/internal/vfs"
)

// Builder builds an SST from entries added in non-decreasing key order.
// Order is the caller's responsibility; like the block builder, it is not
// verified.
type Builder struct {
	blockBuilder *block.Builder
	blockSize    int

	// data accumulates encoded blocks; metas indexes them.
	data  []byte
	metas []BlockMeta

	filterBuilder *filter.Builder
	numEntries    int
}

// NewBuilder creates an SST builder with the given target block size.
// Sizes outside (0, block.MaxBlockSize] fall back to the codec maximum.
func NewBuilder(blockSize int) *Builder {
	if blockSize <= 0 || blockSize > block.MaxBlockSize {
		blockSize = block.MaxBlockSize
	}
	return &Builder{
		blockBuilder:  block.NewBuilder(blockSize),
		blockSize:     blockSize,
		filterBuilder: filter.NewBuilder(),
	}
}

// Add appends an entry. When the in-flight block refuses the entry, the
// block is finalized and a fresh one started.
//
// REQUIRES: no single entry exceeds the block size.
func (b *Builder) Add(key, value []byte) {
	if !b.blockBuilder.Add(key, value) {
		b.finishBlock()
		if !b.blockBuilder.Add(key, value) {
			panic("table: single entry exceeds block size")
		}
	}
	b.filterBuilder.AddKey(key)
	b.numEntries++
}

// finishBlock encodes the in-flight block, records its meta, and starts a
// fresh inner builder.
// REQUIRES: the in-flight block is not empty.
func (b *Builder) finishBlock() {
	b.metas = append(b.metas, BlockMeta{
		Offset:   uint64(len(b.data)),
		FirstKey: append([]byte(nil), b.blockBuilder.FirstKey()...),
	})
	b.data = append(b.data, b.blockBuilder.Build().Encode()...)
	b.blockBuilder = block.NewBuilder(b.blockSize)
}

// EstimatedSize returns the data-block bytes written so far. Meta section
// and trailer are a small fraction and are not counted.
func (b *Builder) EstimatedSize() int {
	return len(b.data)
}

// NumEntries returns the number of entries added so far.
func (b *Builder) NumEntries() int {
	return b.numEntries
}

// Build finalizes the table, writes it through fs in one shot, and returns
// the opened SST with its filter attached. A filter sidecar is written
// next to the table so reopening recovers it.
//
// REQUIRES: at least one entry was added; an empty SST is a caller bug.
func (b *Builder) Build(id uint64, bc *cache.BlockCache, fs vfs.FS, path string) (*SST, error) {
	if !b.blockBuilder.Empty() {
		b.finishBlock()
	}
	if len(b.metas) == 0 {
		panic("table: Build with zero entries")
	}

	buf := b.data
	metaOffset := uint64(len(buf))
	buf = EncodeBlockMetas(buf, b.metas)
	buf = binary.BigEndian.AppendUint64(buf, metaOffset)

	file, err := fs.Create(path, buf)
	if err != nil {
		return nil, err
	}

	flt := b.filterBuilder.Build()
	filterData, err := flt.Encode()
	if err != nil {
		return nil, err
	}
	sidecar, err := fs.Create(path+filter.Suffix, filterData)
	if err != nil {
		return nil, err
	}
	if err := sidecar.Close(); err != nil {
		return nil, err
	}

	t := &SST{
		id:         id,
		file:       file,
		metas:      b.metas,
		metaOffset: metaOffset,
		bc:         bc,
	}
	t.AttachFilter(flt)
	return t, nil
}
