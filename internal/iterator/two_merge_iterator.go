// two_merge_iterator.go implements the two-source merge.
//
// Unlike MergeIterator, the two inputs may be of different concrete types;
// the read path uses this to stack the mem-table view on top of the SST
// view. When both sources hold the same key, A's entry is emitted and B is
// silently advanced past it.
package iterator

import "bytes"

// TwoMergeIterator merges two iterators with "A wins on tie" precedence.
type TwoMergeIterator struct {
	a Iterator
	b Iterator
}

// NewTwoMergeIterator creates a merge over a and b. When both start on the
// same key, b is advanced once so A's entry shadows it.
func NewTwoMergeIterator(a, b Iterator) (*TwoMergeIterator, error) {
	m := &TwoMergeIterator{a: a, b: b}
	if err := m.skipShadowedB(); err != nil {
		return nil, err
	}
	return m, nil
}

// emitA reports whether the current entry comes from A: A is valid and
// either B is exhausted or A's key is <= B's.
func (m *TwoMergeIterator) emitA() bool {
	if !m.a.Valid() {
		return false
	}
	if !m.b.Valid() {
		return true
	}
	return bytes.Compare(m.a.Key(), m.b.Key()) <= 0
}

// skipShadowedB advances B past a key it shares with A.
func (m *TwoMergeIterator) skipShadowedB() error {
	if m.a.Valid() && m.b.Valid() && bytes.Equal(m.a.Key(), m.b.Key()) {
		return m.b.Next()
	}
	return nil
}

// Valid returns true while either source has entries left.
func (m *TwoMergeIterator) Valid() bool {
	return m.a.Valid() || m.b.Valid()
}

// Key returns the current key, or nil when the merge is invalid.
func (m *TwoMergeIterator) Key() []byte {
	if m.emitA() {
		return m.a.Key()
	}
	if m.b.Valid() {
		return m.b.Key()
	}
	return nil
}

// Value returns the current value, or nil when the merge is invalid.
func (m *TwoMergeIterator) Value() []byte {
	if m.emitA() {
		return m.a.Value()
	}
	if m.b.Valid() {
		return m.b.Value()
	}
	return nil
}

// Next advances the side currently being emitted, then re-establishes the
// shadowing invariant in case the advance created a new tie.
func (m *TwoMergeIterator) Next() error {
	if m.emitA() {
		if err := m.a.Next(); err != nil {
			return err
		}
	} else if m.b.Valid() {
		if err := m.b.Next(); err != nil {
			return err
		}
	}
	return m.skipShadowedB()
}
