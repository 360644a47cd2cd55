package engine

import (
	"sort"

	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// reelectAndRebuildLedger implements module D (spec §4.4): the leader
// re-election scan over the levels module C touched, followed by a ledger
// rebuild if any level's leader changed. Grounded on the teacher's
// undo-record / reorg machinery (node/store/undo.go, node/store/reorg.go),
// generalized from "undo spent/created UTXOs per block, replay forward to
// the new tip" to "undo/redo ledger membership per proposer level".
func (e *ChainEngine) reelectAndRebuildLedger(affectedLevels []uint64) (added, removed []consensus.Hash, err error) {
	changeBegin := int64(-1)

	if err := e.db.Update(func(b *graph.Batch) error {
		for _, level := range affectedLevels {
			proposers, err := b.ProposersAtLevel(level)
			if err != nil {
				return err
			}

			var newLeader consensus.Hash
			var newLeaderFound bool
			for _, p := range proposers {
				votes, err := b.VotesFor(p)
				if err != nil {
					return err
				}
				if consensus.Leads(len(votes), e.n) {
					// Last qualifying proposer in scan order wins (spec §4.4,
					// SPEC_FULL.md §9 decision 4).
					newLeader = p
					newLeaderFound = true
				}
			}

			existingLeader, existingFound := b.Leader(level)
			changed := false
			switch {
			case newLeaderFound && existingFound && newLeader == existingLeader:
				// unchanged
			case newLeaderFound:
				if err := b.PutLeader(level, newLeader); err != nil {
					return err
				}
				changed = true
			case existingFound:
				if err := b.DeleteLeader(level); err != nil {
					return err
				}
				changed = true
			}
			if changed && (changeBegin == -1 || int64(level) < changeBegin) {
				changeBegin = int64(level)
			}
		}
		return nil
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}

	if changeBegin == -1 {
		return nil, nil, nil
	}
	return e.rebuildLedger(uint64(changeBegin))
}

// rebuildLedger implements the ledger-rebuild half of module D (spec §4.4
// steps 1-3). unconfirmedMu and then ledgerTipMu are acquired here, while
// the caller (insertVoter) still holds the triggering chain's voter-best
// lock, per spec §5's "leader/ledger batches acquire ledger_tip and
// unconfirmed_proposer before releasing voter best". ledgerTipMu is taken
// last, so no other engine lock is acquired while it is held.
func (e *ChainEngine) rebuildLedger(changeBegin uint64) (added, removed []consensus.Hash, err error) {
	e.unconfirmedMu.Lock()
	defer e.unconfirmedMu.Unlock()
	e.ledgerTipMu.Lock()
	defer e.ledgerTipMu.Unlock()

	var removedProposers, addedProposers []consensus.Hash
	currentTip := e.ledgerTip
	newTip := currentTip

	if err := e.db.Update(func(b *graph.Batch) error {
		if currentTip >= int64(changeBegin) {
			for level := changeBegin; int64(level) <= currentTip; level++ {
				hs, err := b.LedgerOrder(level)
				if err != nil {
					return err
				}
				for _, h := range hs {
					e.unconfirmed.add(h)
					removedProposers = append(removedProposers, h)
				}
				if err := b.DeleteLedgerOrder(level); err != nil {
					return err
				}
			}
			newTip = int64(changeBegin) - 1
		}

		for level := changeBegin; ; level++ {
			leader, ok := b.Leader(level)
			if !ok {
				break
			}
			visited, err := e.dfsConfirm(b, leader)
			if err != nil {
				return err
			}
			if err := b.PutLedgerOrder(level, visited); err != nil {
				return err
			}
			addedProposers = append(addedProposers, visited...)
			newTip = int64(level)
		}
		return nil
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}
	e.ledgerTip = newTip

	addedTx, err := e.txHashesOf(addedProposers)
	if err != nil {
		return nil, nil, err
	}
	removedTx, err := e.txHashesOf(removedProposers)
	if err != nil {
		return nil, nil, err
	}
	return addedTx, removedTx, nil
}

// dfsConfirm performs the stack-based DFS of spec §4.4 step 2 / §9
// ("push children in reverse order so the first reference is popped
// first"). Visitation is decided by removal from unconfirmed_proposer at
// pop time, so a block already confirmed at a smaller level is correctly
// skipped rather than re-added.
func (e *ChainEngine) dfsConfirm(b *graph.Batch, leader consensus.Hash) ([]consensus.Hash, error) {
	type visit struct {
		hash  consensus.Hash
		level uint64
	}
	var out []visit
	stack := []consensus.Hash{leader}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !e.unconfirmed.has(h) {
			continue
		}
		e.unconfirmed.remove(h)

		level, _ := b.ProposerLevel(h)
		out = append(out, visit{hash: h, level: level})

		refs, err := b.ProposerRefs(h)
		if err != nil {
			return nil, err
		}
		for i := len(refs) - 1; i >= 0; i-- {
			stack = append(stack, refs[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].level < out[j].level })
	result := make([]consensus.Hash, len(out))
	for i, v := range out {
		result[i] = v.hash
	}
	return result, nil
}

// txHashesOf translates a list of proposer blocks into the transaction
// blocks they reference, preserving order within each proposer block (spec
// §4.4 step 3).
func (e *ChainEngine) txHashesOf(proposers []consensus.Hash) ([]consensus.Hash, error) {
	var out []consensus.Hash
	if err := e.db.View(func(v *graph.View) error {
		for _, p := range proposers {
			refs, err := v.TxRefs(p)
			if err != nil {
				return err
			}
			out = append(out, refs...)
		}
		return nil
	}); err != nil {
		return nil, consensus.ErrStorage(err)
	}
	return out, nil
}
