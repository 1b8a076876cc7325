// Package block implements the sorted block codec: the unit of I/O and
// caching in a talus SST file.
//
// A block carries a run of key-value entries sorted by key, followed by an
// offset table used for random-access probes, followed by the entry count.
// All fixed-width fields are big-endian:
//
//	| entry 0 | entry 1 | ... | entry N-1 | off 0 | off 1 | ... | off N-1 | N |
//
// Each entry has the format:
//
//	key_length:   uint16
//	key:          char[key_length]
//	value_length: uint16
//	value:        char[value_length]
//
// Each offset is a uint16 byte-offset from the start of the block to the
// entry header; the trailing N is a uint16 entry count. The fixed 2-byte
// widths cap an encoded block at 65535 bytes and key/value lengths at
// 65535 bytes each.
package block

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	// lengthSize is the width of a key or value length prefix.
	lengthSize = 2

	// offsetSize is the width of one offset-table slot.
	offsetSize = 2

	// countSize is the width of the trailing entry count.
	countSize = 2

	// MaxBlockSize is the largest encodable block.
	MaxBlockSize = 65535

	// MaxKeyLength and MaxValueLength are per-entry limits imposed by the
	// 2-byte length prefixes.
	MaxKeyLength   = 65535
	MaxValueLength = 65535
)

// ErrBlockCorrupt indicates the bytes handed to Decode do not form a valid
// block: truncated buffer, out-of-range offset, or an entry whose span
// crosses its neighbour.
var ErrBlockCorrupt = errors.New("block: corrupt block")

// Block is a decoded block. It is immutable once built and may be shared
// freely across goroutines; iterators hold a reference to it for their
// lifetime.
type Block struct {
	// data is the concatenated entry region.
	data []byte

	// offsets holds the start offset of each entry within data, in entry
	// order. Entries were inserted in non-decreasing key order, so offsets
	// enumerate keys in sorted order.
	offsets []uint16
}

// NumEntries returns the number of entries in the block.
func (b *Block) NumEntries() int {
	return len(b.offsets)
}

// Size returns the encoded size of the block in bytes.
func (b *Block) Size() int {
	return len(b.data) + len(b.offsets)*offsetSize + countSize
}

// FirstKey returns the smallest key in the block.
// REQUIRES: the block has at least one entry.
func (b *Block) FirstKey() []byte {
	key, _ := b.entryAt(0)
	return key
}

// entryAt returns the key and value of entry i.
// REQUIRES: 0 <= i < NumEntries(). Offsets were validated at decode time
// (or produced by the builder), so the slicing below cannot go out of range.
func (b *Block) entryAt(i int) (key, value []byte) {
	off := int(b.offsets[i])
	keyLen := int(binary.BigEndian.Uint16(b.data[off:]))
	off += lengthSize
	key = b.data[off : off+keyLen]
	off += keyLen
	valueLen := int(binary.BigEndian.Uint16(b.data[off:]))
	off += lengthSize
	value = b.data[off : off+valueLen]
	return key, value
}

// Encode serializes the block. The result round-trips through Decode.
func (b *Block) Encode() []byte {
	buf := make([]byte, 0, b.Size())
	buf = append(buf, b.data...)
	for _, off := range b.offsets {
		buf = binary.BigEndian.AppendUint16(buf, off)
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(b.offsets)))
	return buf
}

// Decode parses an encoded block. The data slice is not copied; the caller
// must not mutate it afterwards.
//
// Decode succeeds iff the trailing count is non-zero, the buffer is at
// least as long as that count requires, the first entry starts at offset 0,
// every offset lands inside the entry region, and every entry header
// describes a span that ends at its neighbour's offset (or at the end of
// the entry region for the last entry).
func Decode(data []byte) (*Block, error) {
	if len(data) < countSize {
		return nil, errors.Wrap(ErrBlockCorrupt, "short buffer")
	}

	n := int(binary.BigEndian.Uint16(data[len(data)-countSize:]))
	if n == 0 {
		// The builder refuses to emit empty blocks, so a zero count means
		// the trailer bytes are not a count at all.
		return nil, errors.Wrap(ErrBlockCorrupt, "zero entry count")
	}
	tailSize := countSize + n*offsetSize
	if len(data) < tailSize {
		return nil, errors.Wrapf(ErrBlockCorrupt, "count %d exceeds buffer", n)
	}
	dataEnd := len(data) - tailSize

	offsets := make([]uint16, n)
	for i := 0; i < n; i++ {
		offsets[i] = binary.BigEndian.Uint16(data[dataEnd+i*offsetSize:])
	}
	if offsets[0] != 0 {
		return nil, errors.Wrapf(ErrBlockCorrupt, "first entry at offset %d, want 0", offsets[0])
	}

	// Validate that each offset points at a well-formed entry whose span
	// ends exactly where its neighbour begins.
	for i, off := range offsets {
		next := dataEnd
		if i+1 < n {
			next = int(offsets[i+1])
		}
		end, err := entrySpan(data[:dataEnd], int(off))
		if err != nil {
			return nil, err
		}
		if end != next {
			return nil, errors.Wrapf(ErrBlockCorrupt, "entry %d spans [%d, %d), neighbour at %d", i, off, end, next)
		}
	}

	return &Block{
		data:    data[:dataEnd],
		offsets: offsets,
	}, nil
}

// entrySpan parses the entry header at off within the entry region and
// returns the offset one past the entry's value.
func entrySpan(data []byte, off int) (int, error) {
	if off+lengthSize > len(data) {
		return 0, errors.Wrapf(ErrBlockCorrupt, "offset %d out of range", off)
	}
	keyLen := int(binary.BigEndian.Uint16(data[off:]))
	off += lengthSize + keyLen
	if off+lengthSize > len(data) {
		return 0, errors.Wrapf(ErrBlockCorrupt, "key length overruns entry region")
	}
	valueLen := int(binary.BigEndian.Uint16(data[off:]))
	off += lengthSize + valueLen
	if off > len(data) {
		return 0, errors.Wrapf(ErrBlockCorrupt, "value length overruns entry region")
	}
	return off, nil
}
