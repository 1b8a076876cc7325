// iterator.go implements iteration over an SST: binary search over the
// block index to pick the candidate block, then iteration within blocks,
// rolling over to the next block as each is exhausted.
package table

import "github.com/talusdb/taluskv/internal/block"

// Iterator iterates an SST in key order. It holds the table (and the
// currently loaded block) alive for its lifetime and satisfies the
// merge-iterator capability. Single-owner: do not share between goroutines
// without external synchronization.
type Iterator struct {
	table     *SST
	blockIter *block.Iterator
	blockIdx  int
}

// NewIterator returns an iterator positioned at the table's first entry.
func (t *SST) NewIterator() (*Iterator, error) {
	it := &Iterator{table: t}
	if err := it.SeekToFirst(); err != nil {
		return nil, err
	}
	return it, nil
}

// NewIteratorSeek returns an iterator positioned at the first entry with
// key >= target, invalid when there is none.
func (t *SST) NewIteratorSeek(target []byte) (*Iterator, error) {
	it := &Iterator{table: t}
	if err := it.SeekToKey(target); err != nil {
		return nil, err
	}
	return it, nil
}

// SeekToFirst positions the iterator at the first entry of block 0.
func (it *Iterator) SeekToFirst() error {
	if err := it.loadBlock(0); err != nil {
		return err
	}
	it.blockIter.SeekToFirst()
	return nil
}

// SeekToKey positions the iterator at the first entry with key >= target.
// The candidate block is the last one whose first key is <= target; when
// the target falls in the gap past the candidate's last key, the iterator
// fails over to the next block's first entry.
func (it *Iterator) SeekToKey(target []byte) error {
	idx := it.table.FindBlockIdx(target)
	if err := it.loadBlock(idx); err != nil {
		return err
	}
	it.blockIter.SeekToKey(target)
	if !it.blockIter.Valid() && idx+1 < it.table.NumBlocks() {
		if err := it.loadBlock(idx + 1); err != nil {
			return err
		}
		it.blockIter.SeekToFirst()
	}
	return nil
}

// loadBlock makes block idx current with an unpositioned inner iterator.
func (it *Iterator) loadBlock(idx int) error {
	blk, err := it.table.ReadBlock(idx)
	if err != nil {
		return err
	}
	it.blockIdx = idx
	it.blockIter = blk.NewIterator()
	return nil
}

// Valid returns true if the iterator is positioned at an entry. The SST
// iterator is invalid exactly when its inner block iterator is invalid and
// no further block exists.
func (it *Iterator) Valid() bool {
	return it.blockIter != nil && it.blockIter.Valid()
}

// Key returns the current key.
func (it *Iterator) Key() []byte {
	return it.blockIter.Key()
}

// Value returns the current value.
func (it *Iterator) Value() []byte {
	return it.blockIter.Value()
}

// Next advances by one entry, rolling over to the next block when the
// current one is exhausted. No-op when already invalid.
func (it *Iterator) Next() error {
	if !it.Valid() {
		return nil
	}
	it.blockIter.Next()
	if !it.blockIter.Valid() && it.blockIdx+1 < it.table.NumBlocks() {
		if err := it.loadBlock(it.blockIdx + 1); err != nil {
			return err
		}
		it.blockIter.SeekToFirst()
	}
	return nil
}
