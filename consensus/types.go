package consensus

// Kind discriminates the three block kinds of the protocol's data model.
type Kind byte

const (
	KindProposer Kind = iota
	KindVoter
	KindTransaction
)

// ProposerMeta is the persisted per-block metadata for a proposer block.
// ProposerRefs always carries the parent as its first element (spec §4.2).
type ProposerMeta struct {
	Level        uint64
	Difficulty   Hash
	Timestamp    uint64
	ProposerRefs []Hash
	TxRefs       []Hash
}

// Parent returns the proposer's parent hash, i.e. the first proposer ref.
func (m ProposerMeta) Parent() Hash {
	if len(m.ProposerRefs) == 0 {
		return ZeroHash
	}
	return m.ProposerRefs[0]
}

// VoterMeta is the persisted per-block metadata for a voter block.
type VoterMeta struct {
	Level             uint64
	Chain             uint16
	DeepestVotedLevel uint64
	VotedProposers    []Hash
	VoterParent       Hash
}

// TransactionMeta is the persisted per-block metadata for a transaction
// block: only its proposer parent, since transaction contents are opaque to
// the engine.
type TransactionMeta struct {
	Parent Hash
}

// VoteEntry is one element of a proposer block's vote set: the chain that
// cast the vote and the level of the voter block that cast it.
type VoteEntry struct {
	Chain uint16
	Level uint64
}

// VoteSetThreshold reports the value a proposer block's vote-set size must
// strictly exceed for it to become a leader candidate, given N voter
// chains: floor(N/2)+1, per spec §3 invariant 7 ("> floor(N/2)+1").
func VoteSetThreshold(n int) int {
	return n/2 + 1
}

// Leads reports whether a vote set of the given size qualifies its proposer
// block as a leader candidate for its level.
func Leads(voteSetSize, n int) bool {
	return voteSetSize > VoteSetThreshold(n)
}
