// Package main provides the sstdump CLI tool for inspecting SST files.
//
// Usage:
//
//	sstdump --file=<path> [options]
//
// Commands:
//
//	scan            Print every key-value pair in order
//	metas           Print each block's entry count, size, and first key
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/talusdb/taluskv/internal/table"
	"github.com/talusdb/taluskv/internal/vfs"
)

var (
	filePath  = flag.String("file", "", "Path to the SST file (required)")
	command   = flag.String("command", "scan", "Command: scan, metas")
	hexOutput = flag.Bool("hex", false, "Output keys and values in hex format")
	limit     = flag.Int("limit", 0, "Limit number of entries (0 = unlimited)")
	fromKey   = flag.String("from", "", "Start key for scan")
)

func main() {
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Error: --file flag is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	f, err := vfs.Default().Open(*filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	sst, err := table.Open(0, nil, f)
	if err != nil {
		return err
	}

	switch *command {
	case "metas":
		return dumpMetas(sst)
	case "scan":
		return dumpEntries(sst)
	default:
		return fmt.Errorf("unknown command %q", *command)
	}
}

func dumpMetas(sst *table.SST) error {
	fmt.Printf("%s: %d blocks\n", *filePath, sst.NumBlocks())
	for i := 0; i < sst.NumBlocks(); i++ {
		blk, err := sst.ReadBlock(i)
		if err != nil {
			return err
		}
		fmt.Printf("  block %4d: %5d entries, %5d bytes, first key %s\n",
			i, blk.NumEntries(), blk.Size(), format(blk.FirstKey()))
	}
	return nil
}

func dumpEntries(sst *table.SST) error {
	var it *table.Iterator
	var err error
	if *fromKey != "" {
		it, err = sst.NewIteratorSeek([]byte(*fromKey))
	} else {
		it, err = sst.NewIterator()
	}
	if err != nil {
		return err
	}

	count := 0
	for it.Valid() {
		fmt.Printf("%s => %s\n", format(it.Key()), format(it.Value()))
		count++
		if *limit > 0 && count >= *limit {
			break
		}
		if err := it.Next(); err != nil {
			return err
		}
	}
	fmt.Printf("%d entries\n", count)
	return nil
}

func format(b []byte) string {
	if *hexOutput {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%q", b)
}
