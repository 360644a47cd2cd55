package consensus

import "math/big"

// Scale is the fixed-point scale S used by the retarget formula (spec §4.5).
const Scale = 10_000_000

// Retarget computes the next proposer difficulty per spec §4.5:
//
//	r      = (K-1)*S / (timestampNew - timestampAncestor)
//	D_new  = (D_prev / r) * (R_target * S)
//	clamp D_new to [D_prev/2, D_prev*2]
//
// All arithmetic is unsigned 256-bit with truncating division, grounded on
// the teacher's consensus.RetargetV1 (consensus/pow.go) big.Int approach,
// generalized from "ratio of actual to expected interval" to the
// measured-rate-vs-target-rate quotient this protocol uses.
//
// timestampNew <= timestampAncestor (zero or negative elapsed time) and a
// measured rate that underflows to zero are both arithmetic anomalies per
// spec §7; per policy neither panics nor errors — the result saturates at
// the nearer clamp bound instead.
func Retarget(dPrev Hash, k, rTarget, timestampAncestor, timestampNew uint64) (Hash, error) {
	prev := BigFromHash(dPrev)
	if prev.Sign() == 0 {
		return ZeroHash, errArith("retarget: difficulty_prev is zero")
	}
	if k < 2 {
		return ZeroHash, errArith("retarget: K must be >= 2")
	}

	lower := new(big.Int).Rsh(prev, 1)
	upper := new(big.Int).Lsh(prev, 1)
	if upper.Cmp(maxU256) > 0 {
		// D_prev's top bit set: the doubled clamp bound would overflow 256
		// bits. Saturate at the maximum representable difficulty instead.
		upper = maxU256
	}

	var dNew *big.Int
	switch {
	case timestampNew <= timestampAncestor:
		// Zero or negative elapsed time: measured rate is unboundedly high,
		// i.e. mining is currently too easy. Saturate to the harder bound.
		dNew = lower
	default:
		deltaT := new(big.Int).SetUint64(timestampNew - timestampAncestor)
		kMinus1S := new(big.Int).Mul(new(big.Int).SetUint64(k-1), big.NewInt(Scale))
		r := new(big.Int).Div(kMinus1S, deltaT)
		if r.Sign() == 0 {
			// Measured rate underflowed to zero: epoch took far too long,
			// i.e. mining is currently too hard. Saturate to the easier bound.
			dNew = upper
		} else {
			quot := new(big.Int).Div(prev, r)
			rTargetS := new(big.Int).Mul(new(big.Int).SetUint64(rTarget), big.NewInt(Scale))
			dNew = new(big.Int).Mul(quot, rTargetS)
		}
	}

	if dNew.Cmp(lower) < 0 {
		dNew = lower
	} else if dNew.Cmp(upper) > 0 {
		dNew = upper
	}
	return HashFromBig(dNew)
}
