package graph

import "prism.dev/node/consensus"

// Batch read accessors, mirroring the View-side ones in tables.go, for the
// leader and ledger batches (spec §4.1) which need to read tables a prior
// batch in the same InsertBlock call already committed.

func (b *Batch) ProposerLevel(h consensus.Hash) (uint64, bool) {
	raw := b.Get(TableProposerLevel, h[:])
	if raw == nil {
		return 0, false
	}
	n, err := consensus.DecodeU64(raw)
	return n, err == nil
}

func (b *Batch) ProposersAtLevel(level uint64) ([]consensus.Hash, error) {
	return consensus.DecodeHashList(b.Get(TableProposerTreeLevel, levelKey(level)))
}

func (b *Batch) VotesFor(proposer consensus.Hash) ([]consensus.VoteEntry, error) {
	return consensus.DecodeVoteSet(b.Get(TableProposerVoteSet, proposer[:]))
}

func (b *Batch) Leader(level uint64) (consensus.Hash, bool) {
	raw := b.Get(TableLeaderSequence, levelKey(level))
	if raw == nil {
		return consensus.ZeroHash, false
	}
	h, err := consensus.DecodeHash(raw)
	return h, err == nil
}

func (b *Batch) DeleteLeader(level uint64) error {
	return b.Delete(TableLeaderSequence, levelKey(level))
}

func (b *Batch) ProposerRefs(h consensus.Hash) ([]consensus.Hash, error) {
	return consensus.DecodeHashList(b.Get(TableProposerRefs, h[:]))
}

func (b *Batch) TxRefs(proposer consensus.Hash) ([]consensus.Hash, error) {
	return consensus.DecodeHashList(b.Get(TableTxRefs, proposer[:]))
}

func (b *Batch) LedgerOrder(level uint64) ([]consensus.Hash, error) {
	return consensus.DecodeHashList(b.Get(TableLedgerOrder, levelKey(level)))
}
