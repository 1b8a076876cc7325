// merge_iterator.go implements the k-way merge over N sorted sources.
//
// A min-heap orders the non-current sources by (key, source index); the
// source with the smallest key — lowest index on ties — is held outside the
// heap as current and exposed through the observers. Each emitted key costs
// O(log N) heap work plus one extra pop per duplicate.
package iterator

import (
	"bytes"
	"container/heap"
)

// MergeIterator merges N iterators into one sorted view. When multiple
// sources hold the same key, the source with the smallest index wins and
// the others are advanced past that key before the next emit, so any
// contiguous run of equal keys yields exactly one entry.
type MergeIterator struct {
	heap    sourceHeap
	current *source
}

// source is one input to the merge: the iterator plus its construction
// index, which breaks ordering ties.
type source struct {
	index int
	iter  Iterator
}

// NewMergeIterator creates a merge over the given sources. Invalid inputs
// are discarded up front.
//
// REQUIRES: at least one input is valid. Merging zero valid inputs is a
// caller bug; use Empty() for a knowingly-empty source set.
func NewMergeIterator(iters []Iterator) *MergeIterator {
	m := &MergeIterator{}
	for i, it := range iters {
		if it.Valid() {
			m.heap = append(m.heap, &source{index: i, iter: it})
		}
	}
	if len(m.heap) == 0 {
		panic("iterator: merge over zero valid inputs")
	}
	heap.Init(&m.heap)
	m.current = heap.Pop(&m.heap).(*source)
	return m
}

// Valid returns true if the merge is positioned at an entry.
func (m *MergeIterator) Valid() bool {
	return m.current.iter.Valid()
}

// Key returns the current key.
func (m *MergeIterator) Key() []byte {
	return m.current.iter.Key()
}

// Value returns the current value.
func (m *MergeIterator) Value() []byte {
	return m.current.iter.Value()
}

// Next advances the merge past the current key.
//
// When a source's Next fails, that source is dropped from the heap and the
// error is returned; the merge remains usable but has lost the source.
func (m *MergeIterator) Next() error {
	// Advance every source that duplicates the current key so the losing
	// entries are never emitted.
	for len(m.heap) > 0 && bytes.Equal(m.heap[0].iter.Key(), m.current.iter.Key()) {
		top := m.heap[0]
		if err := top.iter.Next(); err != nil {
			heap.Pop(&m.heap)
			return err
		}
		if !top.iter.Valid() {
			heap.Pop(&m.heap)
		} else {
			heap.Fix(&m.heap, 0)
		}
	}

	if err := m.current.iter.Next(); err != nil {
		// Drop the faulty current source in favour of the heap top.
		if len(m.heap) > 0 {
			m.current = heap.Pop(&m.heap).(*source)
		}
		return err
	}

	if !m.current.iter.Valid() {
		if len(m.heap) > 0 {
			m.current = heap.Pop(&m.heap).(*source)
		}
		return nil
	}

	if len(m.heap) > 0 && m.heap[0].less(m.current) {
		m.current, m.heap[0] = m.heap[0], m.current
		heap.Fix(&m.heap, 0)
	}
	return nil
}

// less orders sources by key ascending, then by source index ascending.
func (s *source) less(other *source) bool {
	cmp := bytes.Compare(s.iter.Key(), other.iter.Key())
	if cmp != 0 {
		return cmp < 0
	}
	return s.index < other.index
}

type sourceHeap []*source

func (h sourceHeap) Len() int           { return len(h) }
func (h sourceHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h sourceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *sourceHeap) Push(x any) {
	s, ok := x.(*source)
	if !ok {
		return
	}
	*h = append(*h, s)
}

func (h *sourceHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]
	return s
}
