// iterator.go implements iteration over a decoded block.
//
// The iterator holds a shared reference to the block and an index into its
// offset table. Seeks use binary search over the offset table: keys are
// sorted and offsets give O(1) random access to any entry.
package block

import "bytes"

// Iterator iterates over the entries of a block in key order.
//
// A freshly created iterator is unpositioned (invalid); call SeekToFirst or
// SeekToKey before reading. Iterators are single-owner: callers must not
// share one between goroutines without external synchronization.
type Iterator struct {
	block *Block
	idx   int
	key   []byte
	value []byte
}

// NewIterator creates an unpositioned iterator over the block.
func (b *Block) NewIterator() *Iterator {
	return &Iterator{
		block: b,
		idx:   b.NumEntries(),
	}
}

// Valid returns true if the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.idx < it.block.NumEntries()
}

// Key returns the current key. Only valid while Valid() is true; the slice
// points into the block and is stable until the block is released.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the current value. Only valid while Valid() is true.
func (it *Iterator) Value() []byte {
	return it.value
}

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() {
	it.moveTo(0)
}

// SeekToKey positions the iterator at the smallest key >= target, or
// invalidates it when no such key exists. Keys compare as unsigned byte
// sequences.
func (it *Iterator) SeekToKey(target []byte) {
	lo, hi := 0, it.block.NumEntries()
	for lo < hi {
		mid := (lo + hi) / 2
		key, _ := it.block.entryAt(mid)
		if bytes.Compare(key, target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.moveTo(lo)
}

// Next advances the iterator by one entry.
func (it *Iterator) Next() {
	it.moveTo(it.idx + 1)
}

// moveTo positions the iterator at entry index i, invalidating it when i is
// out of range.
func (it *Iterator) moveTo(i int) {
	it.idx = i
	if i >= it.block.NumEntries() {
		it.key = nil
		it.value = nil
		return
	}
	it.key, it.value = it.block.entryAt(i)
}
