package taluskv

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/talusdb/taluskv/internal/cache"
	"github.com/talusdb/taluskv/internal/filter"
	"github.com/talusdb/taluskv/internal/iterator"
	"github.com/talusdb/taluskv/internal/logging"
	"github.com/talusdb/taluskv/internal/memtable"
	"github.com/talusdb/taluskv/internal/table"
	"github.com/talusdb/taluskv/internal/vfs"
)

const sstSuffix = ".sst"

// ErrEmptyKey is returned for operations on a zero-length key.
var ErrEmptyKey = errors.New("taluskv: empty key")

// Storage composes the engine core: the active mem-table, frozen
// mem-tables awaiting flush, and the on-disk SSTs, newest first. Reads see
// a single sorted view across all of them; on duplicate keys the freshest
// source wins.
//
// Safe for concurrent use.
type Storage struct {
	opts Options
	fs   vfs.FS
	log  logging.Logger
	bc   *cache.BlockCache

	// mu guards the mutable view below. Mem-table contents are internally
	// synchronized; mu only protects the arrangement of sources.
	// flushMu serializes Flush so two flushes never race for the same
	// frozen mem-table.
	flushMu sync.Mutex

	mu     sync.RWMutex
	mem    *memtable.MemTable
	imm    []*memtable.MemTable // frozen, newest first
	ssts   []*table.SST         // newest first
	nextID uint64
}

// Open opens a storage directory, loading any SSTs already present.
func Open(opts Options) (*Storage, error) {
	opts = opts.withDefaults()
	if opts.Dir == "" {
		return nil, errors.New("taluskv: Options.Dir is required")
	}
	if err := opts.FS.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "taluskv: create dir")
	}

	s := &Storage{
		opts:   opts,
		fs:     opts.FS,
		log:    opts.Logger,
		mem:    memtable.New(),
		nextID: 1,
	}
	if !opts.DisableBlockCache {
		s.bc = cache.New(opts.BlockCacheSize)
	}
	if err := s.loadTables(); err != nil {
		return nil, err
	}
	s.log.Infof("storage opened at %s: %d tables", opts.Dir, len(s.ssts))
	return s, nil
}

// loadTables opens every SST in the directory, newest (highest id) first.
func (s *Storage) loadTables() error {
	names, err := s.fs.List(s.opts.Dir)
	if err != nil {
		return err
	}

	var ids []uint64
	for _, name := range names {
		if !strings.HasSuffix(name, sstSuffix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, sstSuffix), 10, 64)
		if err != nil {
			s.log.Warnf("ignoring unparseable table name %q", name)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	for _, id := range ids {
		t, err := s.openTable(id)
		if err != nil {
			return err
		}
		s.ssts = append(s.ssts, t)
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
	return nil
}

// openTable opens one SST and its filter sidecar, if present.
func (s *Storage) openTable(id uint64) (*table.SST, error) {
	path := s.sstPath(id)
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := table.Open(id, s.bc, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	sidecar := path + filter.Suffix
	if s.fs.Exists(sidecar) {
		sf, err := s.fs.Open(sidecar)
		if err != nil {
			return t, nil
		}
		data, err := sf.Read(0, sf.Size())
		sf.Close()
		if err == nil {
			if flt, err := filter.Decode(data); err == nil {
				t.AttachFilter(flt)
			} else {
				s.log.Warnf("table %d: unreadable filter sidecar: %v", id, err)
			}
		}
	}
	return t, nil
}

func (s *Storage) sstPath(id uint64) string {
	return filepath.Join(s.opts.Dir, fmt.Sprintf("%06d%s", id, sstSuffix))
}

// Put inserts or overwrites key -> value in the active mem-table, then
// freezes that mem-table if the write took it to the size threshold.
func (s *Storage) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	s.mu.RLock()
	s.mem.Put(key, value)
	over := s.mem.ApproximateSize() >= s.opts.MemTableSize
	s.mu.RUnlock()

	if over {
		s.maybeFreeze()
	}
	return nil
}

// maybeFreeze freezes the active mem-table if it is still over threshold
// by the time the write lock is held.
func (s *Storage) maybeFreeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem.ApproximateSize() >= s.opts.MemTableSize {
		s.freezeLocked()
	}
}

// Freeze makes the active mem-table immutable and installs a fresh one.
// A no-op when the active mem-table is empty.
func (s *Storage) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem.ApproximateSize() > 0 {
		s.freezeLocked()
	}
}

// freezeLocked requires s.mu held exclusively.
func (s *Storage) freezeLocked() {
	s.mem.Freeze()
	s.imm = append([]*memtable.MemTable{s.mem}, s.imm...)
	s.mem = memtable.New()
	s.log.Debugf("mem-table frozen, %d awaiting flush", len(s.imm))
}

// Get returns the value for key. The boolean is false when the key is
// absent anywhere; an empty value is a present value. Sources are probed
// freshest first, so the most recent Put wins.
func (s *Storage) Get(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, ErrEmptyKey
	}

	mem, imm, ssts := s.snapshot()

	if v, ok := mem.Get(key); ok {
		return v, true, nil
	}
	for _, m := range imm {
		if v, ok := m.Get(key); ok {
			return v, true, nil
		}
	}
	for _, t := range ssts {
		if !t.MayContain(key) {
			continue
		}
		it, err := t.NewIteratorSeek(key)
		if err != nil {
			return nil, false, err
		}
		if it.Valid() && bytes.Equal(it.Key(), key) {
			return it.Value(), true, nil
		}
	}
	return nil, false, nil
}

// Scan returns an iterator over keys in [lower, upper], composed as a
// two-source merge of the mem-table view over the SST view so in-memory
// entries shadow on-disk ones, each view itself a k-way merge with
// freshest-source precedence.
func (s *Storage) Scan(lower, upper memtable.Bound) (iterator.Iterator, error) {
	mem, imm, ssts := s.snapshot()

	var memIters []iterator.Iterator
	for _, m := range append([]*memtable.MemTable{mem}, imm...) {
		if it := m.Scan(lower, upper); it.Valid() {
			memIters = append(memIters, it)
		}
	}
	memView := iterator.Empty()
	if len(memIters) > 0 {
		memView = iterator.NewMergeIterator(memIters)
	}

	var sstIters []iterator.Iterator
	for _, t := range ssts {
		it, err := s.seekTable(t, lower)
		if err != nil {
			return nil, err
		}
		if it.Valid() {
			sstIters = append(sstIters, it)
		}
	}
	sstView := iterator.Empty()
	if len(sstIters) > 0 {
		sstView = iterator.NewMergeIterator(sstIters)
	}

	merged, err := iterator.NewTwoMergeIterator(memView, sstView)
	if err != nil {
		return nil, err
	}
	return &boundedIterator{inner: merged, upper: upper}, nil
}

// seekTable positions a fresh SST iterator at the scan's lower bound.
func (s *Storage) seekTable(t *table.SST, lower memtable.Bound) (*table.Iterator, error) {
	if lower.IsUnbounded() {
		return t.NewIterator()
	}
	it, err := t.NewIteratorSeek(lower.Key())
	if err != nil {
		return nil, err
	}
	if !lower.IsIncluded() && it.Valid() && bytes.Equal(it.Key(), lower.Key()) {
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// snapshot captures the current source arrangement.
func (s *Storage) snapshot() (*memtable.MemTable, []*memtable.MemTable, []*table.SST) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	imm := append([]*memtable.MemTable(nil), s.imm...)
	ssts := append([]*table.SST(nil), s.ssts...)
	return s.mem, imm, ssts
}

// Flush writes the oldest frozen mem-table out as an SST, freezing the
// active one first when nothing is pending. A no-op when there is nothing
// to flush.
func (s *Storage) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if len(s.imm) == 0 {
		if s.mem.ApproximateSize() == 0 {
			s.mu.Unlock()
			return nil
		}
		s.freezeLocked()
	}
	m := s.imm[len(s.imm)-1]
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	b := table.NewBuilder(s.opts.BlockSize)
	m.Flush(b)
	path := s.sstPath(id)
	sst, err := b.Build(id, s.bc, s.fs, path)
	if err != nil {
		return errors.Wrapf(err, "taluskv: flush table %d", id)
	}

	s.mu.Lock()
	s.imm = s.imm[:len(s.imm)-1]
	s.ssts = append([]*table.SST{sst}, s.ssts...)
	s.mu.Unlock()

	s.log.Infof("flushed mem-table to %s: %d entries, %d blocks", path, b.NumEntries(), sst.NumBlocks())
	return nil
}

// FlushAll drains every mem-table, including the active one, to disk.
func (s *Storage) FlushAll() error {
	s.Freeze()
	for {
		s.mu.RLock()
		pending := len(s.imm)
		s.mu.RUnlock()
		if pending == 0 {
			return nil
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
}

// NumTables returns the number of on-disk SSTs.
func (s *Storage) NumTables() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ssts)
}

// Close releases every open table. The Storage must not be used afterwards.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, t := range s.ssts {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.ssts = nil
	return firstErr
}

// boundedIterator enforces the scan's upper bound over the merged view.
// The mem-table iterators bound themselves; the SST iterators run to the
// end of their tables, so the cut happens here.
type boundedIterator struct {
	inner iterator.Iterator
	upper memtable.Bound
}

func (it *boundedIterator) Valid() bool {
	if !it.inner.Valid() {
		return false
	}
	if it.upper.IsUnbounded() {
		return true
	}
	cmp := bytes.Compare(it.inner.Key(), it.upper.Key())
	if it.upper.IsIncluded() {
		return cmp <= 0
	}
	return cmp < 0
}

func (it *boundedIterator) Key() []byte   { return it.inner.Key() }
func (it *boundedIterator) Value() []byte { return it.inner.Value() }
func (it *boundedIterator) Next() error   { return it.inner.Next() }
