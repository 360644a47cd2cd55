package engine

import (
	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// This file implements the read contract of spec §4.6. Snapshot-returning
// methods clone out under their guarding lock, per spec §5 ("reads ...
// take the relevant lock briefly and clone out"), grounded on the
// teacher's ChainState.ConnectBlock copy-before-mutate idiom.

// BestProposer returns the current proposer best-tip (hash, level).
func (e *ChainEngine) BestProposer() (consensus.Hash, uint64, bool) {
	e.proposerBestMu.RLock()
	defer e.proposerBestMu.RUnlock()
	return e.proposerBest.hash, e.proposerBest.level, e.proposerBest.set
}

// BestVoter returns the current best tip (hash, level) of voter chain c.
func (e *ChainEngine) BestVoter(c uint16) (consensus.Hash, uint64, bool) {
	mu := &e.voterBestMu[c]
	mu.RLock()
	defer mu.RUnlock()
	t := e.voterBest[c]
	return t.hash, t.level, t.set
}

// UnreferredProposer returns a snapshot of the unreferred_proposer set.
func (e *ChainEngine) UnreferredProposer() []consensus.Hash {
	e.unreferredProposerMu.Lock()
	defer e.unreferredProposerMu.Unlock()
	return e.unreferredProposer.clone()
}

// UnreferredTransaction returns a snapshot of the unreferred_transaction set.
func (e *ChainEngine) UnreferredTransaction() []consensus.Hash {
	e.unreferredTxMu.Lock()
	defer e.unreferredTxMu.Unlock()
	return e.unreferredTx.clone()
}

// UnconfirmedProposer returns a snapshot of the unconfirmed_proposer set.
func (e *ChainEngine) UnconfirmedProposer() []consensus.Hash {
	e.unconfirmedMu.Lock()
	defer e.unconfirmedMu.Unlock()
	return e.unconfirmed.clone()
}

// LedgerTip returns the highest level with a defined ledger-order entry, or
// -1 if none (genesis not yet seeded -- should not occur after Open).
func (e *ChainEngine) LedgerTip() int64 {
	e.ledgerTipMu.Lock()
	defer e.ledgerTipMu.Unlock()
	return e.ledgerTip
}

// ProposerLevel returns the stored level of a proposer block.
func (e *ChainEngine) ProposerLevel(h consensus.Hash) (uint64, bool) {
	var level uint64
	var ok bool
	_ = e.db.View(func(v *graph.View) error {
		level, ok = v.ProposerLevel(h)
		return nil
	})
	return level, ok
}

// ContainsProposer reports whether h is a known proposer block.
func (e *ChainEngine) ContainsProposer(h consensus.Hash) bool {
	_, ok := e.ProposerLevel(h)
	return ok
}

// ContainsVoter reports whether h is a known voter block.
func (e *ChainEngine) ContainsVoter(h consensus.Hash) bool {
	var ok bool
	_ = e.db.View(func(v *graph.View) error {
		_, ok = v.VoterLevel(h)
		return nil
	})
	return ok
}

// ProposerDifficulty returns the stored difficulty of a proposer block.
func (e *ChainEngine) ProposerDifficulty(h consensus.Hash) (consensus.Hash, bool) {
	var d consensus.Hash
	var ok bool
	_ = e.db.View(func(v *graph.View) error {
		d, ok = v.Difficulty(h)
		return nil
	})
	return d, ok
}

// UnvotedProposer returns the lowest-first list of candidate proposer
// blocks a voter with the given tip should vote on next: for each level L
// in (voted_level(tip), best_proposer_level], the first proposer block
// ever seen at L (insertion order), per spec §4.6.
func (e *ChainEngine) UnvotedProposer(tip consensus.Hash) ([]consensus.Hash, error) {
	var votedLevel uint64
	if err := e.db.View(func(v *graph.View) error {
		votedLevel, _ = v.VoterVotedLevel(tip)
		return nil
	}); err != nil {
		return nil, consensus.ErrStorage(err)
	}

	_, bestLevel, bestSet := e.BestProposer()
	if !bestSet || bestLevel <= votedLevel {
		return nil, nil
	}

	out := make([]consensus.Hash, 0, bestLevel-votedLevel)
	if err := e.db.View(func(v *graph.View) error {
		for level := votedLevel + 1; level <= bestLevel; level++ {
			proposers, err := v.ProposersAtLevel(level)
			if err != nil {
				return err
			}
			if len(proposers) > 0 {
				out = append(out, proposers[0])
			}
		}
		return nil
	}); err != nil {
		return nil, consensus.ErrStorage(err)
	}
	return out, nil
}

// LedgerEntry is one slice element returned by LedgerSlice: the proposer
// block confirmed at a level and the transaction blocks it references.
type LedgerEntry struct {
	Level    uint64
	Proposer consensus.Hash
	TxRefs   []consensus.Hash
}

// LedgerSlice returns up to limit ledger entries, starting at level
// fromLevel, for external consumers (spec §4.6 "ledger slice"). Each
// proposer block in a level's ledger_order entry becomes one LedgerEntry,
// preserving the stored order, so limit counts proposer blocks, not levels;
// a limit <= 0 returns every entry up to the ledger tip.
func (e *ChainEngine) LedgerSlice(fromLevel uint64, limit int) ([]LedgerEntry, error) {
	tip := e.LedgerTip()
	if tip < 0 || fromLevel > uint64(tip) {
		return nil, nil
	}

	var out []LedgerEntry
	if err := e.db.View(func(v *graph.View) error {
		for level := fromLevel; level <= uint64(tip) && (limit <= 0 || len(out) < limit); level++ {
			proposers, err := v.LedgerOrder(level)
			if err != nil {
				return err
			}
			for _, p := range proposers {
				if limit > 0 && len(out) >= limit {
					break
				}
				refs, err := v.TxRefs(p)
				if err != nil {
					return err
				}
				out = append(out, LedgerEntry{Level: level, Proposer: p, TxRefs: refs})
			}
		}
		return nil
	}); err != nil {
		return nil, consensus.ErrStorage(err)
	}
	return out, nil
}
