package engine

import (
	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// GenesisProposer returns the deterministic hash of the proposer genesis
// block G_p (spec §3 "Genesis"): content-addressed from a fixed label so
// two engines configured identically derive the same genesis hash without
// needing to agree on it out of band.
func GenesisProposer() consensus.Hash {
	return consensus.Sha3_256([]byte("prism/genesis/proposer"))
}

// GenesisVoter returns the deterministic hash of voter genesis block
// G_v[chain].
func GenesisVoter(chain uint16) consensus.Hash {
	buf := []byte("prism/genesis/voter/")
	buf = consensus.AppendU16le(buf, chain)
	return consensus.Sha3_256(buf)
}

// seedGenesis writes the genesis invariant of spec §3: G_p at level 0 with
// the configured initial difficulty, sole leader and sole ledger_order[0]
// member, sole initial unreferred proposer; N voter genesis blocks, each
// voting for G_p, so G_p's vote set starts as {(0,0),(1,0),...,(N-1,0)}.
func (e *ChainEngine) seedGenesis() error {
	gp := GenesisProposer()

	if err := e.db.Update(func(b *graph.Batch) error {
		if err := b.PutProposerLevel(gp, 0); err != nil {
			return err
		}
		if err := b.AppendProposerAtLevel(0, gp); err != nil {
			return err
		}
		if err := b.PutProposerRefs(gp, nil); err != nil {
			return err
		}
		if err := b.PutDifficulty(gp, e.cfg.GenesisDifficulty); err != nil {
			return err
		}
		if err := b.PutProposerTimestamp(gp, e.cfg.GenesisTimestamp); err != nil {
			return err
		}
		for c := 0; c < e.n; c++ {
			gv := GenesisVoter(uint16(c))
			if err := b.PutVoterLevel(gv, 0); err != nil {
				return err
			}
			if err := b.PutVoterChain(gv, uint16(c)); err != nil {
				return err
			}
			if err := b.PutVoterVotedLevel(gv, 0); err != nil {
				return err
			}
			if err := b.AppendVoteEdge(gv, gp); err != nil {
				return err
			}
			if err := b.AddVote(gp, consensus.VoteEntry{Chain: uint16(c), Level: 0}); err != nil {
				return err
			}
		}
		if err := b.PutLeader(0, gp); err != nil {
			return err
		}
		return b.PutLedgerOrder(0, []consensus.Hash{gp})
	}); err != nil {
		return consensus.ErrStorage(err)
	}

	e.proposerBest = tipState{hash: gp, level: 0, set: true}
	for c := 0; c < e.n; c++ {
		e.voterBest[c] = tipState{hash: GenesisVoter(uint16(c)), level: 0, set: true}
	}
	e.unreferredProposer.add(gp)
	e.ledgerTip = 0
	return nil
}

// rebuildFromStore re-derives the in-memory guarded state from persisted
// tables when opening an already-seeded datadir (graph.Options{Reuse:
// true}). This is the partial, less-exercised recovery path of
// SPEC_FULL.md §9 decision 1: unreferred_transaction cannot be fully
// reconstructed because the graph store, per spec §4.1's table list, keeps
// no registry of every transaction-block hash ever inserted -- only the
// tx_refs of proposer blocks that have already cited one. It is left empty
// after a reuse-open, a known, documented gap rather than a guess.
func (e *ChainEngine) rebuildFromStore() error {
	return e.db.View(func(v *graph.View) error {
		if err := e.rebuildProposerState(v); err != nil {
			return err
		}
		if err := e.rebuildVoterState(v); err != nil {
			return err
		}
		return e.rebuildLedgerTip(v)
	})
}

func (e *ChainEngine) rebuildProposerState(v *graph.View) error {
	var bestHash consensus.Hash
	var bestLevel uint64
	bestSet := false

	confirmed := make(hashSet)
	for level := uint64(0); ; level++ {
		proposers, err := v.ProposersAtLevel(level)
		if err != nil {
			return err
		}
		if len(proposers) == 0 {
			break
		}
		for _, p := range proposers {
			e.unreferredProposer.add(p)
			e.unconfirmed.add(p)
		}
		if !bestSet || level > bestLevel {
			bestHash, bestLevel, bestSet = proposers[0], level, true
		}
		ledger, err := v.LedgerOrder(level)
		if err != nil {
			return err
		}
		for _, p := range ledger {
			confirmed.add(p)
		}
	}
	for p := range confirmed {
		e.unconfirmed.remove(p)
	}
	// Recover referenced-ness: any proposer cited as a parent or extra ref
	// by another proposer, or any tx block cited via tx_refs, is no longer
	// unreferred.
	for level := uint64(1); ; level++ {
		proposers, err := v.ProposersAtLevel(level)
		if err != nil || len(proposers) == 0 {
			break
		}
		for _, b := range proposers {
			refs, err := v.ProposerRefs(b)
			if err != nil {
				return err
			}
			for _, r := range refs {
				e.unreferredProposer.remove(r)
			}
			txRefs, err := v.TxRefs(b)
			if err != nil {
				return err
			}
			for _, tx := range txRefs {
				e.unreferredTx.remove(tx)
			}
		}
	}
	if bestSet {
		e.proposerBest = tipState{hash: bestHash, level: bestLevel, set: true}
	}
	return nil
}

// rebuildVoterState conservatively falls back each chain's best tip to its
// genesis block. voter_parent edges only point backward, so walking
// forward to the true tip would require scanning every voter block ever
// inserted; the present implementation accepts this as the same documented
// recovery gap as unreferred_transaction in rebuildProposerState.
func (e *ChainEngine) rebuildVoterState(v *graph.View) error {
	for c := 0; c < e.n; c++ {
		e.voterBest[c] = tipState{hash: GenesisVoter(uint16(c)), level: 0, set: true}
	}
	return nil
}

func (e *ChainEngine) rebuildLedgerTip(v *graph.View) error {
	tip := int64(-1)
	for level := uint64(0); ; level++ {
		if _, ok := v.Leader(level); !ok {
			break
		}
		if _, err := v.LedgerOrder(level); err != nil {
			return err
		}
		tip = int64(level)
	}
	e.ledgerTip = tip
	return nil
}
