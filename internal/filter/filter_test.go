package filter

import (
	"errors"
	"fmt"
	"testing"
)

func TestFilterMembership(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 1000; i++ {
		b.AddKey([]byte(fmt.Sprintf("present-%04d", i)))
	}
	f := b.Build()

	for i := 0; i < 1000; i++ {
		if !f.MayContain([]byte(fmt.Sprintf("present-%04d", i))) {
			t.Fatalf("false negative for present-%04d", i)
		}
	}

	falsePositives := 0
	for i := 0; i < 1000; i++ {
		if f.MayContain([]byte(fmt.Sprintf("absent-%04d", i))) {
			falsePositives++
		}
	}
	// 1% target; allow generous slack to keep the test deterministic-ish.
	if falsePositives > 100 {
		t.Errorf("%d/1000 false positives", falsePositives)
	}
}

func TestFilterRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.AddKey([]byte("apple"))
	b.AddKey([]byte("banana"))

	data, err := b.Build().Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	f, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !f.MayContain([]byte("apple")) || !f.MayContain([]byte("banana")) {
		t.Error("decoded filter lost keys")
	}
}

func TestFilterDecodeCorrupt(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x02}); !errors.Is(err, ErrFilterCorrupt) {
		t.Errorf("Decode = %v, want ErrFilterCorrupt", err)
	}
}

func TestFilterEmptyBuilder(t *testing.T) {
	f := NewBuilder().Build()
	// An empty filter may answer anything for absent keys except panic;
	// exercising it is the point.
	_ = f.MayContain([]byte("anything"))
}
