package consensus

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Hash is a 32-byte content identifier. It doubles as a big-endian unsigned
// 256-bit integer wherever the protocol compares difficulty values.
type Hash [32]byte

// ZeroHash is the all-zero identifier, used as a sentinel for "no parent".
var ZeroHash Hash

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

func sha3_256(b []byte) Hash {
	return Hash(sha3.Sum256(b))
}

// Sha3_256 returns the SHA3-256 digest of b as a Hash. Exported for callers
// outside this package that need to derive a deterministic block identifier
// (e.g. genesis seeding) — block hashing for ordinary blocks is the
// validator's job, out of scope here.
func Sha3_256(b []byte) Hash { return sha3_256(b) }

// CompareBig compares a and b as big-endian unsigned 256-bit integers.
// It returns -1, 0, or +1 as a < b, a == b, a > b.
func CompareBig(a, b Hash) int {
	return new(big.Int).SetBytes(a[:]).Cmp(new(big.Int).SetBytes(b[:]))
}

// BigFromHash interprets h as a big-endian unsigned integer.
func BigFromHash(h Hash) *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// maxU256 is the largest value HashFromBig can represent (2^256 - 1), used
// by difficulty retargeting to clamp a doubled difficulty before conversion
// rather than let it overflow.
var maxU256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// HashFromBig converts x (must be non-negative and fit in 32 bytes) back into
// a Hash, left-padding with zero bytes.
func HashFromBig(x *big.Int) (Hash, error) {
	var out Hash
	if x.Sign() < 0 {
		return out, errArith("u256: negative")
	}
	b := x.Bytes()
	if len(b) > len(out) {
		return out, errArith("u256: overflow")
	}
	copy(out[len(out)-len(b):], b)
	return out, nil
}
