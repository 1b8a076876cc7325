// Package memtable implements the write-receiving in-memory ordered map and
// the skip list underneath it.
//
// The skip list provides:
//   - Lock-free reads: concurrent reads are safe without locking.
//   - Writes require external synchronization (MemTable serializes them).
//   - Nodes are never unlinked or deleted until the list is garbage
//     collected, so iterators stay consistent alongside concurrent inserts:
//     keys already returned never repeat and never appear out of order; keys
//     inserted after iterator creation may or may not be observed.
package memtable

import (
	"bytes"
	"math/rand"
	"sync/atomic"
)

const (
	// maxHeight is the maximum tower height of a skip-list node.
	maxHeight = 12

	// branching is the branching factor: on average 1/branching nodes are
	// promoted to the next level.
	branching = 4
)

// Comparator compares two keys and returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
type Comparator func(a, b []byte) int

// BytewiseComparator is the default comparator. Keys compare as unsigned
// byte sequences.
func BytewiseComparator(a, b []byte) int {
	return bytes.Compare(a, b)
}

// node is a skip-list node. The key is immutable; the value pointer is
// swapped atomically on overwrite so readers always observe a complete
// value.
type node struct {
	key   []byte
	value atomic.Pointer[[]byte]
	// next[i] is the successor at level i, accessed atomically for
	// lock-free reads.
	next []atomic.Pointer[node]
}

func newNode(key, value []byte, height int) *node {
	n := &node{
		key:  key,
		next: make([]atomic.Pointer[node], height),
	}
	n.value.Store(&value)
	return n
}

func (n *node) getNext(level int) *node {
	return n.next[level].Load()
}

func (n *node) setNext(level int, x *node) {
	n.next[level].Store(x)
}

// SkipList is an ordered map from key to value with lock-free reads.
// Writes require external synchronization.
type SkipList struct {
	head    *node
	height  atomic.Int32
	compare Comparator
	rng     *rand.Rand
}

// NewSkipList creates an empty skip list. A nil comparator defaults to
// BytewiseComparator.
func NewSkipList(cmp Comparator) *SkipList {
	if cmp == nil {
		cmp = BytewiseComparator
	}
	l := &SkipList{
		head:    newNode(nil, nil, maxHeight),
		compare: cmp,
		rng:     rand.New(rand.NewSource(0xdeadbeef)),
	}
	l.height.Store(1)
	return l
}

// randomHeight draws a tower height with P(height > h) = branching^-h.
// Callers hold the write lock, so the unsynchronized rng is safe.
func (l *SkipList) randomHeight() int {
	h := 1
	for h < maxHeight && l.rng.Intn(branching) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual returns the first node with key >= target. When prev
// is non-nil it is filled with the rightmost node before the target at
// every level, for use as the splice point of an insert.
func (l *SkipList) findGreaterOrEqual(target []byte, prev []*node) *node {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.getNext(level)
		if next != nil && l.compare(next.key, target) < 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// Put inserts key -> value, overwriting any existing value for the key.
// Both slices are copied.
//
// REQUIRES: external write synchronization.
func (l *SkipList) Put(key, value []byte) {
	value = append([]byte(nil), value...)

	prev := make([]*node, maxHeight)
	x := l.findGreaterOrEqual(key, prev)
	if x != nil && l.compare(x.key, key) == 0 {
		x.value.Store(&value)
		return
	}

	height := l.randomHeight()
	if h := int(l.height.Load()); height > h {
		for i := h; i < height; i++ {
			prev[i] = l.head
		}
		// Concurrent readers that load the old height simply skip the new
		// upper levels; correctness does not depend on seeing them.
		l.height.Store(int32(height))
	}

	n := newNode(append([]byte(nil), key...), value, height)
	// Link bottom-up: publish the node's own pointers before splicing it
	// in, so a reader following prev[i] always finds consistent links.
	for i := 0; i < height; i++ {
		n.setNext(i, prev[i].getNext(i))
		prev[i].setNext(i, n)
	}
}

// Get returns the value stored for key.
func (l *SkipList) Get(key []byte) ([]byte, bool) {
	x := l.findGreaterOrEqual(key, nil)
	if x == nil || l.compare(x.key, key) != 0 {
		return nil, false
	}
	return *x.value.Load(), true
}

// ListIterator iterates the skip list in key order. It holds a reference to
// the list, keeping the nodes reachable for its lifetime.
type ListIterator struct {
	list *SkipList
	n    *node
}

// NewIterator returns an unpositioned iterator; call SeekToFirst or Seek.
func (l *SkipList) NewIterator() *ListIterator {
	return &ListIterator{list: l}
}

// Valid returns true if the iterator is positioned at a node.
func (it *ListIterator) Valid() bool {
	return it.n != nil
}

// Key returns the current key.
// REQUIRES: Valid().
func (it *ListIterator) Key() []byte {
	return it.n.key
}

// Value returns the current value.
// REQUIRES: Valid().
func (it *ListIterator) Value() []byte {
	return *it.n.value.Load()
}

// SeekToFirst positions the iterator at the smallest key.
func (it *ListIterator) SeekToFirst() {
	it.n = it.list.head.getNext(0)
}

// Seek positions the iterator at the first key >= target.
func (it *ListIterator) Seek(target []byte) {
	it.n = it.list.findGreaterOrEqual(target, nil)
}

// Next advances to the next key. No-op when invalid.
func (it *ListIterator) Next() {
	if it.n != nil {
		it.n = it.n.getNext(0)
	}
}
