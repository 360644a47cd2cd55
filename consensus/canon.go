package consensus

// Canonical byte encodings for the values the graph store persists. The list
// encodings here follow the same length-prefix-then-elements shape as the
// teacher protocol's wire format (consensus/encode.go): a CompactSize count
// followed by fixed-width elements, integers little-endian. Single u64, u16
// and Hash values are stored fixed-width with no prefix.

// EncodeHashList serializes a list of hashes as count || hash*.
func EncodeHashList(hs []Hash) []byte {
	out := AppendCompactSize(make([]byte, 0, 1+len(hs)*32), uint64(len(hs)))
	for _, h := range hs {
		out = append(out, h[:]...)
	}
	return out
}

// DecodeHashList parses a list of hashes encoded by EncodeHashList. A
// zero-length buffer decodes as the empty list: graph.Batch.Get/View.Get
// return nil for an absent key, and an absent key is an empty collection
// for both merge operators, not a decode error.
func DecodeHashList(b []byte) ([]Hash, error) {
	if len(b) == 0 {
		return nil, nil
	}
	off := 0
	n, err := readCompactSize(b, &off)
	if err != nil {
		return nil, err
	}
	out := make([]Hash, 0, n)
	for i := uint64(0); i < n; i++ {
		raw, err := readBytes(b, &off, 32)
		if err != nil {
			return nil, err
		}
		var h Hash
		copy(h[:], raw)
		out = append(out, h)
	}
	return out, nil
}

// EncodeVoteSet serializes a vote set (list of (chain,level) pairs) as
// count || (chain u16le, level u64le)*.
func EncodeVoteSet(vs []VoteEntry) []byte {
	out := AppendCompactSize(make([]byte, 0, 1+len(vs)*10), uint64(len(vs)))
	for _, v := range vs {
		out = AppendU16le(out, v.Chain)
		out = AppendU64le(out, v.Level)
	}
	return out
}

// DecodeVoteSet parses a vote set encoded by EncodeVoteSet. A zero-length
// buffer decodes as the empty set, for the same absent-key reason as
// DecodeHashList.
func DecodeVoteSet(b []byte) ([]VoteEntry, error) {
	if len(b) == 0 {
		return nil, nil
	}
	off := 0
	n, err := readCompactSize(b, &off)
	if err != nil {
		return nil, err
	}
	out := make([]VoteEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		chain, err := readU16le(b, &off)
		if err != nil {
			return nil, err
		}
		level, err := readU64le(b, &off)
		if err != nil {
			return nil, err
		}
		out = append(out, VoteEntry{Chain: chain, Level: level})
	}
	return out, nil
}

// EncodeU64 / DecodeU64 persist the plain u64 table values (proposer_level,
// voter_level, voter_voted_level, proposer_timestamp).
func EncodeU64(v uint64) []byte {
	return AppendU64le(nil, v)
}

func DecodeU64(b []byte) (uint64, error) {
	off := 0
	return readU64le(b, &off)
}

// EncodeU16 / DecodeU16 persist the plain u16 table value (voter_chain).
func EncodeU16(v uint16) []byte {
	return AppendU16le(nil, v)
}

func DecodeU16(b []byte) (uint16, error) {
	off := 0
	return readU16le(b, &off)
}

// EncodeHash / DecodeHash persist the plain Hash table values (leader_sequence,
// mining_difficulty, parent, voter_parent).
func EncodeHash(h Hash) []byte {
	return append([]byte(nil), h[:]...)
}

func DecodeHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != len(h) {
		return h, errStorage("decode hash: wrong length")
	}
	copy(h[:], b)
	return h, nil
}
