// builder.go implements block building under a fixed size budget.
//
// Builder accumulates entries until admitting the next one would push the
// encoded block past the configured block size, at which point Add refuses
// and the caller rotates to a fresh builder.
package block

import "encoding/binary"

// Builder accumulates sorted key-value entries and emits a Block.
//
// The builder assumes the caller feeds keys in non-decreasing order; it does
// not verify this. Violating the order produces a block whose iterator
// returns entries in insertion order rather than sorted order.
type Builder struct {
	data      []byte
	offsets   []uint16
	firstKey  []byte
	blockSize int
	built     bool
}

// NewBuilder creates a block builder with the given size budget in bytes.
// The budget covers the encoded block: entries, offset table, and count.
func NewBuilder(blockSize int) *Builder {
	if blockSize <= 0 || blockSize > MaxBlockSize {
		blockSize = MaxBlockSize
	}
	return &Builder{
		data:      make([]byte, 0, blockSize),
		blockSize: blockSize,
	}
}

// Add appends an entry iff it fits the size budget. It returns false
// without mutating the builder when the entry does not fit. The first entry
// is always admitted: the caller is responsible for ensuring no single
// entry exceeds the block size.
//
// REQUIRES: Build has not been called.
// REQUIRES: key is >= any previously added key.
func (b *Builder) Add(key, value []byte) bool {
	if b.built {
		panic("block: Add called after Build")
	}
	if len(key) > MaxKeyLength || len(value) > MaxValueLength {
		panic("block: entry exceeds codec length limits")
	}

	// The trailing offsetSize accounts for the new entry's offset slot.
	newSize := b.EstimatedSize() + lengthSize + len(key) + lengthSize + len(value) + offsetSize
	if !b.Empty() && newSize > b.blockSize {
		return false
	}

	if b.Empty() {
		b.firstKey = append(b.firstKey[:0], key...)
	}
	b.offsets = append(b.offsets, uint16(len(b.data)))
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)
	return true
}

// Empty returns true iff no entries have been admitted.
func (b *Builder) Empty() bool {
	return len(b.offsets) == 0
}

// EstimatedSize returns the encoded size of the block as built so far.
func (b *Builder) EstimatedSize() int {
	return len(b.data) + len(b.offsets)*offsetSize + countSize
}

// FirstKey returns the first key added to the builder. The returned slice
// is owned by the builder.
// REQUIRES: the builder is not empty.
func (b *Builder) FirstKey() []byte {
	return b.firstKey
}

// Build finalizes and returns the block. The builder must not be used
// afterwards.
// REQUIRES: the builder is not empty.
func (b *Builder) Build() *Block {
	if b.Empty() {
		panic("block: Build on empty builder")
	}
	b.built = true
	return &Block{
		data:    b.data,
		offsets: b.offsets,
	}
}
