package table

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/talusdb/taluskv/internal/cache"
	"github.com/talusdb/taluskv/internal/filter"
	"github.com/talusdb/taluskv/internal/vfs"
)

// buildSST writes entries into an SST on fs and returns the opened table.
func buildSST(t *testing.T, fs vfs.FS, blockSize int, path string, entries [][2]string) *SST {
	t.Helper()
	b := NewBuilder(blockSize)
	for _, e := range entries {
		b.Add([]byte(e[0]), []byte(e[1]))
	}
	sst, err := b.Build(1, nil, fs, path)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return sst
}

func drainIterator(t *testing.T, it *Iterator) [][2]string {
	t.Helper()
	var out [][2]string
	for it.Valid() {
		out = append(out, [2]string{string(it.Key()), string(it.Value())})
		if err := it.Next(); err != nil {
			t.Fatalf("Next error: %v", err)
		}
	}
	return out
}

func TestSSTAcrossBlocks(t *testing.T) {
	fs := vfs.NewMem()
	sst := buildSST(t, fs, 32, "03.sst", [][2]string{
		{"k1", "vvvvvvv"},
		{"k2", "vvvvvvv"},
		{"k3", "vvvvvvv"},
	})

	if sst.NumBlocks() < 2 {
		t.Fatalf("NumBlocks = %d, want >= 2", sst.NumBlocks())
	}

	it, err := sst.NewIteratorSeek([]byte("k2"))
	if err != nil {
		t.Fatalf("NewIteratorSeek error: %v", err)
	}
	got := drainIterator(t, it)
	want := [][2]string{{"k2", "vvvvvvv"}, {"k3", "vvvvvvv"}}
	if len(got) != len(want) {
		t.Fatalf("scan from k2 = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSSTIterateAll(t *testing.T) {
	fs := vfs.NewMem()
	var entries [][2]string
	for i := 0; i < 300; i++ {
		entries = append(entries, [2]string{
			fmt.Sprintf("key-%04d", i),
			fmt.Sprintf("value-%04d", i),
		})
	}
	sst := buildSST(t, fs, 256, "all.sst", entries)
	if sst.NumBlocks() < 10 {
		t.Fatalf("NumBlocks = %d, expected many small blocks", sst.NumBlocks())
	}

	it, err := sst.NewIterator()
	if err != nil {
		t.Fatal(err)
	}
	got := drainIterator(t, it)
	if len(got) != len(entries) {
		t.Fatalf("iterated %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d = %v, want %v", i, got[i], entries[i])
		}
	}
}

func TestSSTReopen(t *testing.T) {
	fs := vfs.NewMem()
	entries := [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}}
	built := buildSST(t, fs, 4096, "re.sst", entries)
	built.Close()

	f, err := fs.Open("re.sst")
	if err != nil {
		t.Fatal(err)
	}
	sst, err := Open(1, nil, f)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	it, err := sst.NewIterator()
	if err != nil {
		t.Fatal(err)
	}
	got := drainIterator(t, it)
	if len(got) != 3 || got[0][0] != "a" || got[2][1] != "3" {
		t.Errorf("reopened scan = %v", got)
	}
	if !bytes.Equal(sst.FirstKey(), []byte("a")) {
		t.Errorf("FirstKey = %q", sst.FirstKey())
	}
}

func TestSSTSeekCases(t *testing.T) {
	fs := vfs.NewMem()
	// Small blocks so seeks cross block boundaries.
	var entries [][2]string
	for _, k := range []string{"b", "d", "f", "h", "j", "l"} {
		entries = append(entries, [2]string{k + k, "value-" + k})
	}
	sst := buildSST(t, fs, 24, "seek.sst", entries)
	if sst.NumBlocks() < 3 {
		t.Fatalf("NumBlocks = %d, want >= 3", sst.NumBlocks())
	}

	tests := []struct {
		target string
		want   string
		valid  bool
	}{
		{"", "bb", true},
		{"a", "bb", true},
		{"bb", "bb", true},
		{"bc", "dd", true},
		{"dd", "dd", true},
		{"kk", "ll", true},
		{"ll", "ll", true},
		{"m", "", false}, // past every key: candidate is the last block, fails over to invalid
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("seek=%q", tt.target), func(t *testing.T) {
			it, err := sst.NewIteratorSeek([]byte(tt.target))
			if err != nil {
				t.Fatal(err)
			}
			if it.Valid() != tt.valid {
				t.Fatalf("Valid = %v, want %v", it.Valid(), tt.valid)
			}
			if tt.valid && string(it.Key()) != tt.want {
				t.Errorf("Key = %q, want %q", it.Key(), tt.want)
			}
		})
	}
}

func TestFindBlockIdx(t *testing.T) {
	fs := vfs.NewMem()
	sst := buildSST(t, fs, 24, "idx.sst", [][2]string{
		{"bb", "1"}, {"dd", "2"}, {"ff", "3"}, {"hh", "4"},
	})
	n := sst.NumBlocks()
	if n < 2 {
		t.Fatalf("NumBlocks = %d, want >= 2", n)
	}

	if got := sst.FindBlockIdx([]byte("a")); got != 0 {
		t.Errorf("FindBlockIdx(a) = %d, want 0", got)
	}
	if got := sst.FindBlockIdx([]byte("bb")); got != 0 {
		t.Errorf("FindBlockIdx(bb) = %d, want 0", got)
	}
	// Larger than every first key: must still return a valid index — the
	// last block — so the engine knows where to start scanning.
	if got := sst.FindBlockIdx([]byte("zz")); got != n-1 {
		t.Errorf("FindBlockIdx(zz) = %d, want %d", got, n-1)
	}
}

func TestSSTBlockCache(t *testing.T) {
	fs := vfs.NewMem()
	bc := cache.New(1 << 20)

	b := NewBuilder(32)
	for _, e := range [][2]string{{"k1", "vvvvvvv"}, {"k2", "vvvvvvv"}, {"k3", "vvvvvvv"}} {
		b.Add([]byte(e[0]), []byte(e[1]))
	}
	sst, err := b.Build(9, bc, fs, "c.sst")
	if err != nil {
		t.Fatal(err)
	}

	blk, err := sst.ReadBlock(0)
	if err != nil {
		t.Fatal(err)
	}
	again, err := sst.ReadBlock(0)
	if err != nil {
		t.Fatal(err)
	}
	if blk != again {
		t.Error("second ReadBlock did not come from the cache")
	}
	if bc.Hits() == 0 {
		t.Error("cache recorded no hit")
	}

	// The cache is keyed by table id as well as index.
	if _, ok := bc.Lookup(cache.Key{TableID: 9, BlockIndex: 0}); !ok {
		t.Error("block missing under (9, 0)")
	}
	if _, ok := bc.Lookup(cache.Key{TableID: 8, BlockIndex: 0}); ok {
		t.Error("block leaked under a foreign table id")
	}
}

func TestSSTFilterSidecar(t *testing.T) {
	fs := vfs.NewMem()
	sst := buildSST(t, fs, 4096, "f.sst", [][2]string{{"apple", "red"}, {"banana", "yellow"}})

	if !sst.MayContain([]byte("apple")) {
		t.Error("filter rules out a present key")
	}

	if !fs.Exists("f.sst" + filter.Suffix) {
		t.Fatal("filter sidecar not written")
	}
	sidecar, err := fs.Open("f.sst" + filter.Suffix)
	if err != nil {
		t.Fatal(err)
	}
	data, err := sidecar.Read(0, sidecar.Size())
	if err != nil {
		t.Fatal(err)
	}
	flt, err := filter.Decode(data)
	if err != nil {
		t.Fatalf("sidecar did not decode: %v", err)
	}

	f, err := fs.Open("f.sst")
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := Open(1, nil, f)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.MayContain([]byte("nothing")) {
		t.Error("filterless table must answer maybe")
	}
	reopened.AttachFilter(flt)
	if !reopened.MayContain([]byte("banana")) {
		t.Error("attached filter rules out a present key")
	}
}

func TestOpenInvalid(t *testing.T) {
	fs := vfs.NewMem()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{1, 2, 3}},
		{"trailer past end", []byte{0, 0, 0, 0, 0, 0, 0, 99}},
		{"no blocks", []byte{0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := fs.Create("bad.sst", tt.data)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Open(1, nil, f); !errors.Is(err, ErrInvalidSST) {
				t.Errorf("Open = %v, want ErrInvalidSST", err)
			}
		})
	}
}

func TestBuilderEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Build with zero entries did not panic")
		}
	}()
	NewBuilder(4096).Build(1, nil, vfs.NewMem(), "empty.sst")
}

func TestBuilderEstimatedSize(t *testing.T) {
	b := NewBuilder(32)
	if b.EstimatedSize() != 0 {
		t.Errorf("fresh builder EstimatedSize = %d", b.EstimatedSize())
	}
	b.Add([]byte("k1"), []byte("vvvvvvv"))
	b.Add([]byte("k2"), []byte("vvvvvvv"))
	b.Add([]byte("k3"), []byte("vvvvvvv")) // rotates the first block out
	if b.EstimatedSize() == 0 {
		t.Error("EstimatedSize still 0 after a block was finalized")
	}
	if b.NumEntries() != 3 {
		t.Errorf("NumEntries = %d, want 3", b.NumEntries())
	}
}

func TestSSTBinaryKeys(t *testing.T) {
	fs := vfs.NewMem()
	b := NewBuilder(4096)
	keys := [][]byte{{0x00}, {0x00, 0x00}, {0x7f, 0xff}, {0x80}, {0xff, 0xff}}
	for i, k := range keys {
		b.Add(k, []byte{byte(i)})
	}
	sst, err := b.Build(1, nil, fs, "bin.sst")
	if err != nil {
		t.Fatal(err)
	}

	it, err := sst.NewIteratorSeek([]byte{0x7f})
	if err != nil {
		t.Fatal(err)
	}
	if !it.Valid() || !bytes.Equal(it.Key(), []byte{0x7f, 0xff}) {
		t.Errorf("seek 0x7f landed on %x", it.Key())
	}
}
