package table

import (
	"bytes"
	"errors"
	"testing"
)

func TestBlockMetaRoundTrip(t *testing.T) {
	metas := []BlockMeta{
		{Offset: 0, FirstKey: []byte("aardvark")},
		{Offset: 4096, FirstKey: []byte("")},
		{Offset: 8192, FirstKey: []byte{0x00, 0xff, 0x7f}},
	}

	encoded := EncodeBlockMetas(nil, metas)
	decoded, err := DecodeBlockMetas(encoded)
	if err != nil {
		t.Fatalf("DecodeBlockMetas error: %v", err)
	}
	if len(decoded) != len(metas) {
		t.Fatalf("decoded %d metas, want %d", len(decoded), len(metas))
	}
	for i := range metas {
		if decoded[i].Offset != metas[i].Offset {
			t.Errorf("meta %d offset = %d, want %d", i, decoded[i].Offset, metas[i].Offset)
		}
		if !bytes.Equal(decoded[i].FirstKey, metas[i].FirstKey) {
			t.Errorf("meta %d first key = %q, want %q", i, decoded[i].FirstKey, metas[i].FirstKey)
		}
	}
}

func TestBlockMetaEmptySection(t *testing.T) {
	decoded, err := DecodeBlockMetas(nil)
	if err != nil {
		t.Fatalf("DecodeBlockMetas(nil) error: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("decoded %d metas from empty section", len(decoded))
	}
}

func TestBlockMetaCorrupt(t *testing.T) {
	valid := EncodeBlockMetas(nil, []BlockMeta{{Offset: 1, FirstKey: []byte("key")}})

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated header", valid[:10]},
		{"truncated key", valid[:len(valid)-1]},
		{"huge key length", func() []byte {
			d := append([]byte(nil), valid...)
			d[8] = 0xff
			return d
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBlockMetas(tt.data); !errors.Is(err, ErrMetaCorrupt) {
				t.Errorf("DecodeBlockMetas = %v, want ErrMetaCorrupt", err)
			}
		})
	}
}
