// Package taluskv implements the core of a log-structured merge-tree
// storage engine: a write-receiving mem-table, immutable sorted string
// tables on disk, and the iterator algebra that presents a single sorted
// view across all of them.
//
// Writes land in the active mem-table. When it crosses its size threshold
// it is frozen; Flush drains frozen mem-tables, in sorted order, into an
// SST builder, which emits fixed-budget blocks and records a first-key
// index for each. Reads
// compose iterators: SST iterators over the on-disk tables and mem-table
// range iterators are combined by two-source and k-way merges, with
// duplicate keys resolved in favour of the freshest source.
//
// The write-ahead log, compaction, and manifest management live outside
// this module; Storage interacts with the world only through the vfs file
// backend and the block cache.
package taluskv
