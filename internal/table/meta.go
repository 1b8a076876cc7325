// Package table provides SST file reading and writing.
//
// SST file layout:
//
//	| block 0 | block 1 | ... | block M-1 | meta 0 | ... | meta M-1 | meta_offset |
//
// Each meta record indexes one data block:
//
//	offset:        uint64  (byte offset of the block within the file)
//	first_key_len: uint64
//	first_key:     char[first_key_len]
//
// The trailing meta_offset is a uint64 pointing at the start of the meta
// section. All integers are big-endian. Blocks are sorted such that
// max-key(block i) <= min-key(block i+1), so the first keys in the meta
// section support binary search for the block containing any target key.
// An SST is immutable once written.
package table

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// metaTrailerSize is the width of the meta_offset trailer.
const metaTrailerSize = 8

// ErrMetaCorrupt indicates a meta section that does not decode.
var ErrMetaCorrupt = errors.New("table: corrupt block meta")

// BlockMeta indexes one data block of an SST.
type BlockMeta struct {
	// Offset of the block within the file.
	Offset uint64

	// FirstKey is the smallest key in the block.
	FirstKey []byte
}

// EncodeBlockMetas appends the encoded meta section to dst.
func EncodeBlockMetas(dst []byte, metas []BlockMeta) []byte {
	for _, m := range metas {
		dst = binary.BigEndian.AppendUint64(dst, m.Offset)
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(m.FirstKey)))
		dst = append(dst, m.FirstKey...)
	}
	return dst
}

// DecodeBlockMetas parses a meta section, consuming records until the
// buffer is exhausted.
func DecodeBlockMetas(data []byte) ([]BlockMeta, error) {
	var metas []BlockMeta
	for len(data) > 0 {
		if len(data) < 16 {
			return nil, errors.Wrapf(ErrMetaCorrupt, "%d trailing bytes", len(data))
		}
		offset := binary.BigEndian.Uint64(data)
		keyLen := binary.BigEndian.Uint64(data[8:])
		data = data[16:]
		if keyLen > uint64(len(data)) {
			return nil, errors.Wrapf(ErrMetaCorrupt, "first key length %d overruns section", keyLen)
		}
		metas = append(metas, BlockMeta{
			Offset:   offset,
			FirstKey: data[:keyLen:keyLen],
		})
		data = data[keyLen:]
	}
	return metas, nil
}
