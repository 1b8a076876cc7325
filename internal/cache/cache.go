// Package cache provides the block cache: a sharded LRU mapping
// (table id, block index) to a decoded block, so hot blocks are served
// without touching the file backend.
//
// Sharding: entries are distributed over 16 shards by the xxh3 hash of
// their key, so concurrent readers of different tables rarely contend on
// the same mutex. Each shard is an independent LRU with its own byte
// budget.
package cache

import (
	"container/list"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/talusdb/taluskv/internal/block"
)

const numShards = 16

// Key uniquely identifies a cached block.
type Key struct {
	TableID    uint64
	BlockIndex int
}

// BlockCache caches decoded blocks with LRU eviction. Safe for concurrent
// use. Cached blocks are immutable and shared; an evicted block stays
// usable by anyone still holding it.
type BlockCache struct {
	shards [numShards]shard

	hits   atomic.Uint64
	misses atomic.Uint64
}

type shard struct {
	mu       sync.Mutex
	capacity uint64
	usage    uint64
	lru      *list.List // front = most recently used
	table    map[Key]*list.Element
}

type entry struct {
	key    Key
	blk    *block.Block
	charge uint64
}

// New creates a block cache with the given total capacity in bytes, split
// evenly across the shards.
func New(capacity uint64) *BlockCache {
	c := &BlockCache{}
	for i := range c.shards {
		c.shards[i] = shard{
			capacity: capacity / numShards,
			lru:      list.New(),
			table:    make(map[Key]*list.Element),
		}
	}
	return c
}

// shardFor picks the shard owning key.
func (c *BlockCache) shardFor(key Key) *shard {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:], key.TableID)
	binary.BigEndian.PutUint64(buf[8:], uint64(key.BlockIndex))
	return &c.shards[xxh3.Hash(buf[:])%numShards]
}

// Lookup returns the cached block for key, if present, and marks it
// recently used.
func (c *BlockCache) Lookup(key Key) (*block.Block, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.table[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	s.lru.MoveToFront(elem)
	c.hits.Add(1)
	return getEntry(elem).blk, true
}

// Insert adds a block under key, evicting least-recently-used entries as
// needed. Inserting an existing key replaces its block.
func (c *BlockCache) Insert(key Key, blk *block.Block) {
	charge := uint64(blk.Size())
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.table[key]; ok {
		e := getEntry(elem)
		s.usage += charge - e.charge
		e.blk = blk
		e.charge = charge
		s.lru.MoveToFront(elem)
	} else {
		s.table[key] = s.lru.PushFront(&entry{key: key, blk: blk, charge: charge})
		s.usage += charge
	}

	// Evict from the cold end; never the entry just touched.
	for s.usage > s.capacity && s.lru.Len() > 1 {
		oldest := s.lru.Back()
		e := getEntry(oldest)
		s.lru.Remove(oldest)
		delete(s.table, e.key)
		s.usage -= e.charge
	}
}

// Erase removes key from the cache if present.
func (c *BlockCache) Erase(key Key) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.table[key]; ok {
		s.lru.Remove(elem)
		delete(s.table, key)
		s.usage -= getEntry(elem).charge
	}
}

// Usage returns the bytes currently charged across all shards.
func (c *BlockCache) Usage() uint64 {
	var total uint64
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		total += s.usage
		s.mu.Unlock()
	}
	return total
}

// Len returns the number of cached blocks.
func (c *BlockCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

// Hits returns the number of successful lookups.
func (c *BlockCache) Hits() uint64 { return c.hits.Load() }

// Misses returns the number of failed lookups.
func (c *BlockCache) Misses() uint64 { return c.misses.Load() }

// getEntry extracts the entry from a list element. The assertion is safe:
// the list only ever stores *entry.
func getEntry(elem *list.Element) *entry {
	e, _ := elem.Value.(*entry)
	return e
}
