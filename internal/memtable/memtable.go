// memtable.go implements the mem-table: the mutable, concurrent ordered map
// that receives writes until it is frozen and flushed into an SST.
package memtable

import (
	"sync"
	"sync/atomic"
)

// EntrySink receives entries in ascending key order. The SST builder
// satisfies it; Flush drains a mem-table into one.
type EntrySink interface {
	Add(key, value []byte)
}

// MemTable is an ordered mapping from key to value.
//
// Concurrency: Get, Put, and Scan may run on any number of goroutines.
// Writers never block readers; writers are serialized internally
// (last-writer-wins on the same key). A scan holds the underlying map alive
// for its lifetime and observes a view consistent with its creation point.
type MemTable struct {
	list *SkipList

	// mu serializes writers; the skip list requires it.
	mu sync.Mutex

	// approximateSize tracks the raw bytes of keys and values added,
	// for freeze decisions. Overwrites charge the new entry in full.
	approximateSize atomic.Int64

	frozen atomic.Bool
}

// New creates an empty mem-table with bytewise key ordering.
func New() *MemTable {
	return &MemTable{list: NewSkipList(nil)}
}

// Get returns the value stored for key. The second return is false when the
// key is absent; an empty value is a present value.
func (m *MemTable) Get(key []byte) ([]byte, bool) {
	return m.list.Get(key)
}

// Put inserts or overwrites key -> value.
//
// REQUIRES: the mem-table is not frozen.
func (m *MemTable) Put(key, value []byte) {
	if m.frozen.Load() {
		panic("memtable: Put on frozen mem-table")
	}
	m.mu.Lock()
	m.list.Put(key, value)
	m.mu.Unlock()
	m.approximateSize.Add(int64(len(key) + len(value)))
}

// Freeze makes the mem-table read-only. Further Puts panic.
func (m *MemTable) Freeze() {
	m.frozen.Store(true)
}

// IsFrozen returns true once Freeze has been called.
func (m *MemTable) IsFrozen() bool {
	return m.frozen.Load()
}

// ApproximateSize returns the raw key+value bytes written so far.
func (m *MemTable) ApproximateSize() int64 {
	return m.approximateSize.Load()
}

// Scan returns an iterator over keys in [lower, upper], honouring each
// bound's inclusive/exclusive/unbounded kind independently. Entries come
// back in ascending key order.
func (m *MemTable) Scan(lower, upper Bound) *Iterator {
	inner := m.list.NewIterator()
	switch lower.kind {
	case boundUnbounded:
		inner.SeekToFirst()
	case boundIncluded:
		inner.Seek(lower.key)
	case boundExcluded:
		inner.Seek(lower.key)
		if inner.Valid() && BytewiseComparator(inner.Key(), lower.key) == 0 {
			inner.Next()
		}
	}
	return &Iterator{inner: inner, upper: upper}
}

// Flush feeds every entry, in ascending key order, into the sink. Used to
// drain a frozen mem-table into an SST builder.
func (m *MemTable) Flush(sink EntrySink) {
	it := m.list.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		sink.Add(it.Key(), it.Value())
	}
}

// Iterator is a bounded range iterator over a mem-table. It shares the
// underlying map, which stays alive while the iterator does. It satisfies
// the merge-iterator capability.
type Iterator struct {
	inner *ListIterator
	upper Bound
}

// Valid returns true while the iterator is positioned inside the range.
func (it *Iterator) Valid() bool {
	if !it.inner.Valid() {
		return false
	}
	switch it.upper.kind {
	case boundIncluded:
		return BytewiseComparator(it.inner.Key(), it.upper.key) <= 0
	case boundExcluded:
		return BytewiseComparator(it.inner.Key(), it.upper.key) < 0
	default:
		return true
	}
}

// Key returns the current key.
func (it *Iterator) Key() []byte {
	return it.inner.Key()
}

// Value returns the current value.
func (it *Iterator) Value() []byte {
	return it.inner.Value()
}

// Next advances by one entry. The error return satisfies the iterator
// capability; mem-table iteration itself cannot fail.
func (it *Iterator) Next() error {
	it.inner.Next()
	return nil
}
