package consensus

import (
	"math/big"
	"testing"
)

func hashFromUint64(v uint64) Hash {
	h, err := HashFromBig(new(big.Int).SetUint64(v))
	if err != nil {
		panic(err)
	}
	return h
}

func TestRetarget_Idempotent(t *testing.T) {
	// Choose timestamps so the measured rate equals R_target*Scale exactly:
	// (K-1)*Scale / deltaT == R_target*Scale  =>  deltaT == (K-1)/R_target.
	const k = 9
	const rTarget = 2
	const deltaT = (k - 1) / rTarget // = 4, exact
	dPrev := hashFromUint64(1_000_000)

	got, err := Retarget(dPrev, k, rTarget, 0, deltaT)
	if err != nil {
		t.Fatalf("Retarget: %v", err)
	}
	if got != dPrev {
		t.Fatalf("expected idempotent retarget, got %x want %x", got[:], dPrev[:])
	}
}

func TestRetarget_ClampsUpperAndLower(t *testing.T) {
	dPrev := hashFromUint64(1_000_000)

	// Huge deltaT starves the measured rate to zero -> saturate to upper (2x).
	got, err := Retarget(dPrev, 9, 2, 0, 1_000_000_000_000)
	if err != nil {
		t.Fatalf("Retarget: %v", err)
	}
	wantHash := hashFromUint64(2_000_000)
	if got != wantHash {
		t.Fatalf("expected clamp to 2x D_prev, got %x want %x", got[:], wantHash[:])
	}

	// Zero elapsed time -> saturate to lower (D_prev/2).
	got, err = Retarget(dPrev, 9, 2, 100, 100)
	if err != nil {
		t.Fatalf("Retarget: %v", err)
	}
	wantHash = hashFromUint64(500_000)
	if got != wantHash {
		t.Fatalf("expected clamp to D_prev/2, got %x want %x", got[:], wantHash[:])
	}
}

func TestRetarget_ZeroPrevDifficultyErrors(t *testing.T) {
	if _, err := Retarget(ZeroHash, 9, 2, 0, 4); err == nil {
		t.Fatalf("expected error for zero D_prev")
	}
}

func TestCompareBig(t *testing.T) {
	a := hashFromUint64(5)
	b := hashFromUint64(10)
	if CompareBig(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if CompareBig(b, a) <= 0 {
		t.Fatalf("expected b > a")
	}
	if CompareBig(a, a) != 0 {
		t.Fatalf("expected equal")
	}
}
