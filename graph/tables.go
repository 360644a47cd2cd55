package graph

import "prism.dev/node/consensus"

// This file provides typed Get/Put accessors over the 15 tables named in
// db.go, keyed by block hash (or, for proposer_tree_level, leader_sequence
// and ledger_order, by level). Callers
// build a Batch (write) or View (read) from DB.Update / DB.View and drive
// these accessors; InsertBlock in the engine package composes them into the
// three-phase commit of spec §4.1.

// --- proposer_level: hash -> u64 level ---

func (b *Batch) PutProposerLevel(h consensus.Hash, level uint64) error {
	return b.Put(TableProposerLevel, h[:], consensus.EncodeU64(level))
}

func (v *View) ProposerLevel(h consensus.Hash) (uint64, bool) {
	raw := v.Get(TableProposerLevel, h[:])
	if raw == nil {
		return 0, false
	}
	n, err := consensus.DecodeU64(raw)
	return n, err == nil
}

// --- voter_level: hash -> u64 level (local depth on its own chain) ---

func (b *Batch) PutVoterLevel(h consensus.Hash, level uint64) error {
	return b.Put(TableVoterLevel, h[:], consensus.EncodeU64(level))
}

func (v *View) VoterLevel(h consensus.Hash) (uint64, bool) {
	raw := v.Get(TableVoterLevel, h[:])
	if raw == nil {
		return 0, false
	}
	n, err := consensus.DecodeU64(raw)
	return n, err == nil
}

// --- voter_chain: hash -> u16 chain index ---

func (b *Batch) PutVoterChain(h consensus.Hash, chain uint16) error {
	return b.Put(TableVoterChain, h[:], consensus.EncodeU16(chain))
}

func (v *View) VoterChain(h consensus.Hash) (uint16, bool) {
	raw := v.Get(TableVoterChain, h[:])
	if raw == nil {
		return 0, false
	}
	n, err := consensus.DecodeU16(raw)
	return n, err == nil
}

// --- voter_voted_level: hash -> u64, deepest proposer level this voter block has voted on ---

func (b *Batch) PutVoterVotedLevel(h consensus.Hash, level uint64) error {
	return b.Put(TableVoterVotedLevel, h[:], consensus.EncodeU64(level))
}

func (v *View) VoterVotedLevel(h consensus.Hash) (uint64, bool) {
	raw := v.Get(TableVoterVotedLevel, h[:])
	if raw == nil {
		return 0, false
	}
	n, err := consensus.DecodeU64(raw)
	return n, err == nil
}

// --- proposer_tree_level: u64 level -> hash list of all proposer blocks at that level ---

func (b *Batch) AppendProposerAtLevel(level uint64, h consensus.Hash) error {
	return b.AppendHashList(TableProposerTreeLevel, levelKey(level), h)
}

func (v *View) ProposersAtLevel(level uint64) ([]consensus.Hash, error) {
	return v.HashList(TableProposerTreeLevel, levelKey(level))
}

// --- proposer_vote_set: proposer hash -> vote set (chain, level)* ---

func (b *Batch) AddVote(proposer consensus.Hash, entry consensus.VoteEntry) error {
	return b.VoteSetAdd(TableProposerVoteSet, proposer[:], entry)
}

func (b *Batch) RemoveVote(proposer consensus.Hash, chain uint16) error {
	return b.VoteSetRemoveChain(TableProposerVoteSet, proposer[:], chain)
}

func (v *View) VotesFor(proposer consensus.Hash) ([]consensus.VoteEntry, error) {
	return v.VoteSet(TableProposerVoteSet, proposer[:])
}

// --- leader_sequence: u64 level -> leader proposer hash (key absent if no leader) ---

func (b *Batch) PutLeader(level uint64, h consensus.Hash) error {
	return b.Put(TableLeaderSequence, levelKey(level), consensus.EncodeHash(h))
}

func (v *View) Leader(level uint64) (consensus.Hash, bool) {
	raw := v.Get(TableLeaderSequence, levelKey(level))
	if raw == nil {
		return consensus.ZeroHash, false
	}
	h, err := consensus.DecodeHash(raw)
	return h, err == nil
}

// --- ledger_order: u64 level -> ordered list of proposer H's confirmed via that level ---

func (b *Batch) PutLedgerOrder(level uint64, hs []consensus.Hash) error {
	return b.Put(TableLedgerOrder, levelKey(level), consensus.EncodeHashList(hs))
}

func (b *Batch) DeleteLedgerOrder(level uint64) error {
	return b.Delete(TableLedgerOrder, levelKey(level))
}

func (v *View) LedgerOrder(level uint64) ([]consensus.Hash, error) {
	return v.HashList(TableLedgerOrder, levelKey(level))
}

// --- proposer_timestamp: hash -> u64 unix timestamp ---

func (b *Batch) PutProposerTimestamp(h consensus.Hash, ts uint64) error {
	return b.Put(TableProposerTimestamp, h[:], consensus.EncodeU64(ts))
}

func (v *View) ProposerTimestamp(h consensus.Hash) (uint64, bool) {
	raw := v.Get(TableProposerTimestamp, h[:])
	if raw == nil {
		return 0, false
	}
	n, err := consensus.DecodeU64(raw)
	return n, err == nil
}

// --- mining_difficulty: hash -> difficulty target (u256, big-endian Hash) ---

func (b *Batch) PutDifficulty(h consensus.Hash, d consensus.Hash) error {
	return b.Put(TableMiningDifficulty, h[:], consensus.EncodeHash(d))
}

func (v *View) Difficulty(h consensus.Hash) (consensus.Hash, bool) {
	raw := v.Get(TableMiningDifficulty, h[:])
	if raw == nil {
		return consensus.ZeroHash, false
	}
	d, err := consensus.DecodeHash(raw)
	return d, err == nil
}

// --- parent: hash -> parent proposer hash (proposer tree edge) ---

func (b *Batch) PutParent(h, parent consensus.Hash) error {
	return b.Put(TableParent, h[:], consensus.EncodeHash(parent))
}

func (v *View) Parent(h consensus.Hash) (consensus.Hash, bool) {
	raw := v.Get(TableParent, h[:])
	if raw == nil {
		return consensus.ZeroHash, false
	}
	p, err := consensus.DecodeHash(raw)
	return p, err == nil
}

// --- vote_edges: voter block hash -> hash list of proposer blocks it voted for ---

func (b *Batch) AppendVoteEdge(voter consensus.Hash, proposer consensus.Hash) error {
	return b.AppendHashList(TableVoteEdges, voter[:], proposer)
}

func (v *View) VoteEdges(voter consensus.Hash) ([]consensus.Hash, error) {
	return v.HashList(TableVoteEdges, voter[:])
}

// --- voter_parent: voter block hash -> previous voter block on the same chain ---

func (b *Batch) PutVoterParent(h, parent consensus.Hash) error {
	return b.Put(TableVoterParent, h[:], consensus.EncodeHash(parent))
}

func (v *View) VoterParent(h consensus.Hash) (consensus.Hash, bool) {
	raw := v.Get(TableVoterParent, h[:])
	if raw == nil {
		return consensus.ZeroHash, false
	}
	p, err := consensus.DecodeHash(raw)
	return p, err == nil
}

// --- tx_refs: proposer hash -> hash list of transaction blocks it references ---

func (b *Batch) AppendTxRef(proposer, tx consensus.Hash) error {
	return b.AppendHashList(TableTxRefs, proposer[:], tx)
}

func (v *View) TxRefs(proposer consensus.Hash) ([]consensus.Hash, error) {
	return v.HashList(TableTxRefs, proposer[:])
}

// --- proposer_refs: proposer hash -> hash list (parent first, then uncle refs) ---

func (b *Batch) PutProposerRefs(h consensus.Hash, refs []consensus.Hash) error {
	return b.Put(TableProposerRefs, h[:], consensus.EncodeHashList(refs))
}

func (v *View) ProposerRefs(h consensus.Hash) ([]consensus.Hash, error) {
	return v.HashList(TableProposerRefs, h[:])
}
