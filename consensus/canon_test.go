package consensus

import "testing"

func TestHashListRoundTrip(t *testing.T) {
	in := []Hash{hashFromUint64(1), hashFromUint64(2), hashFromUint64(300)}
	got, err := DecodeHashList(EncodeHashList(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("element %d mismatch: got %x want %x", i, got[i][:], in[i][:])
		}
	}
}

func TestHashListRoundTrip_Empty(t *testing.T) {
	got, err := DecodeHashList(EncodeHashList(nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestVoteSetRoundTrip(t *testing.T) {
	in := []VoteEntry{{Chain: 0, Level: 5}, {Chain: 300, Level: 9999999}}
	got, err := DecodeVoteSet(EncodeVoteSet(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("element %d mismatch: got %+v want %+v", i, got[i], in[i])
		}
	}
}

func TestVoteSetRoundTrip_ManyElements(t *testing.T) {
	// Exercise the CompactSize 0xfd boundary (>=253 elements).
	in := make([]VoteEntry, 300)
	for i := range in {
		in[i] = VoteEntry{Chain: uint16(i), Level: uint64(i)}
	}
	got, err := DecodeVoteSet(EncodeVoteSet(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(in))
	}
}

func TestU64RoundTrip(t *testing.T) {
	got, err := DecodeU64(EncodeU64(123456789))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != 123456789 {
		t.Fatalf("got %d want 123456789", got)
	}
}

func TestHashRoundTrip(t *testing.T) {
	in := hashFromUint64(42)
	got, err := DecodeHash(EncodeHash(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Fatalf("got %x want %x", got[:], in[:])
	}
}

func TestLeads(t *testing.T) {
	// N=5 -> threshold floor(5/2)+1 = 3; vote set must exceed 3, i.e. >= 4.
	if Leads(3, 5) {
		t.Fatalf("3 votes should not lead with N=5")
	}
	if !Leads(4, 5) {
		t.Fatalf("4 votes should lead with N=5")
	}
}
