// Package filter provides the per-table bloom filter consulted by the read
// path before any block is fetched. A filter answers "definitely absent"
// or "maybe present"; a miss lets point lookups skip the table entirely.
//
// Filters are built alongside the SST and persisted in a sidecar file next
// to it. A table without a sidecar simply has no filter and every lookup
// proceeds to the block index.
package filter

import (
	"bytes"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cockroachdb/errors"
)

// falsePositiveRate tunes filter size; 1% keeps the sidecar around 10 bits
// per key.
const falsePositiveRate = 0.01

// Suffix is appended to an SST path to name its filter sidecar.
const Suffix = ".filter"

// ErrFilterCorrupt indicates sidecar bytes that do not decode.
var ErrFilterCorrupt = errors.New("filter: corrupt filter")

// Filter is an immutable membership filter over a table's keys. Safe for
// concurrent use.
type Filter struct {
	bf *bloom.BloomFilter
}

// MayContain returns false only when key is definitely not in the table.
func (f *Filter) MayContain(key []byte) bool {
	return f.bf.Test(key)
}

// Encode serializes the filter for the sidecar file.
func (f *Filter) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.bf.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "filter: encode")
	}
	return buf.Bytes(), nil
}

// Decode parses sidecar bytes produced by Encode.
func Decode(data []byte) (*Filter, error) {
	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(ErrFilterCorrupt, "%v", err)
	}
	return &Filter{bf: bf}, nil
}

// Builder accumulates keys while an SST is built.
type Builder struct {
	keys [][]byte
}

// NewBuilder returns an empty filter builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddKey records a key. The slice is copied.
func (b *Builder) AddKey(key []byte) {
	b.keys = append(b.keys, append([]byte(nil), key...))
}

// NumKeys returns the number of keys recorded.
func (b *Builder) NumKeys() int {
	return len(b.keys)
}

// Build sizes a bloom filter for the recorded keys and returns it.
func (b *Builder) Build() *Filter {
	n := max(len(b.keys), 1)
	bf := bloom.NewWithEstimates(uint(n), falsePositiveRate)
	for _, k := range b.keys {
		bf.Add(k)
	}
	return &Filter{bf: bf}
}
