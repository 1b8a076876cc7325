// Package iterator provides the iterator capability shared by every sorted
// source in talus, plus the merge iterators that materialize a single
// sorted view across many overlapping sources.
package iterator

// Iterator is the capability required of any component plugged into the
// merge iterators: SST iterators, mem-table iterators, and the merges
// themselves all satisfy it.
//
// Contract: while Valid() is true, Key() and Value() are stable until the
// next call to Next(); successive keys are non-decreasing. An invalid
// iterator exposes no key or value — callers must check Valid() first.
type Iterator interface {
	// Valid returns true if the iterator is positioned at an entry.
	Valid() bool

	// Key returns the current key.
	Key() []byte

	// Value returns the current value.
	Value() []byte

	// Next advances to the next entry. It returns an error when the
	// underlying source fails. Where the iterator stands afterwards depends
	// on the implementation: a MergeIterator drops the failed source and
	// stays usable.
	Next() error
}

// emptyIterator is an always-invalid Iterator.
type emptyIterator struct{}

// Empty returns an iterator over nothing. It stands in for a merge over a
// source set that has no valid members, which NewMergeIterator treats as a
// caller bug.
func Empty() Iterator {
	return emptyIterator{}
}

func (emptyIterator) Valid() bool   { return false }
func (emptyIterator) Key() []byte   { return nil }
func (emptyIterator) Value() []byte { return nil }
func (emptyIterator) Next() error   { return nil }
