package cardutil

import (
	"strings"
	"testing"
	"time"
)

// seqRand plays back a fixed byte sequence, cycling if exhausted.
type seqRand struct {
	data []byte
	pos  int
}

func (r *seqRand) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.data[r.pos%len(r.data)]
		r.pos++
	}
	return len(p), nil
}

func TestGenerateCardNumber(t *testing.T) {
	rnd := &seqRand{data: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
	number, err := GenerateCardNumber(rnd, "400000", 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(number) != 16 {
		t.Fatalf("length = %d, want 16", len(number))
	}
	if !strings.HasPrefix(number, "400000") {
		t.Fatalf("number %q missing prefix", number)
	}
	if number != "4000000123456789" {
		t.Fatalf("deterministic source gave %q", number)
	}
}

func TestGenerateCardNumberInvalidLength(t *testing.T) {
	rnd := &seqRand{data: []byte{1}}
	if _, err := GenerateCardNumber(rnd, "400000", 3); err == nil {
		t.Fatal("expected error for length shorter than prefix")
	}
	if _, err := GenerateCardNumber(rnd, "400000", 20); err == nil {
		t.Fatal("expected error for length over 19")
	}
}

func TestGenerateCVV(t *testing.T) {
	cvv, err := GenerateCVV(&seqRand{data: []byte{17, 25, 33}})
	if err != nil {
		t.Fatal(err)
	}
	if cvv != "753" {
		t.Fatalf("cvv = %q, want 753", cvv)
	}
}

func TestExpiryDate(t *testing.T) {
	issued := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)
	got := ExpiryDate(issued, 3)
	want := time.Date(2029, 8, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ExpiryDate = %v, want %v", got, want)
	}
}
