package engine

import (
	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// insertProposer implements module B (spec §4.2): the six responsibilities
// of inserting a proposer block. Grounded on the teacher's hash-keyed
// metadata/edge bookkeeping idiom (node/blockstore.go), generalized from
// UTXO-chain indexing to proposer-tree indexing.
func (e *ChainEngine) insertProposer(in BlockInput) (added, removed []consensus.Hash, err error) {
	var parentLevel uint64
	var parentDifficulty consensus.Hash
	var parentFound bool

	if err := e.db.View(func(v *graph.View) error {
		parentLevel, parentFound = v.ProposerLevel(in.Parent)
		if !parentFound {
			return nil
		}
		parentDifficulty, _ = v.Difficulty(in.Parent)
		return nil
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}
	if !parentFound {
		consensus.MissingParent("proposer", in.Parent)
	}

	level := parentLevel + 1
	// proposer_refs is prefixed with the parent so it is always the first
	// cited proposer (spec §4.2 step 2).
	refs := make([]consensus.Hash, 0, 1+len(in.ProposerRefs))
	refs = append(refs, in.Parent)
	refs = append(refs, in.ProposerRefs...)

	difficulty, err := e.computeDifficulty(level, in.Parent, parentDifficulty, in.Timestamp)
	if err != nil {
		return nil, nil, err
	}

	if err := e.db.Update(func(b *graph.Batch) error {
		if err := b.PutParent(in.Hash, in.Parent); err != nil {
			return err
		}
		if err := b.AppendProposerAtLevel(level, in.Hash); err != nil {
			return err
		}
		if err := b.PutProposerLevel(in.Hash, level); err != nil {
			return err
		}
		if err := b.PutProposerRefs(in.Hash, refs); err != nil {
			return err
		}
		for _, tx := range in.TxRefs {
			if err := b.AppendTxRef(in.Hash, tx); err != nil {
				return err
			}
		}
		if err := b.PutDifficulty(in.Hash, difficulty); err != nil {
			return err
		}
		// Stored per-block (not only at retarget levels) so the K-2 walk in
		// computeDifficulty can read the timestamp of whichever ancestor it
		// lands on, which is not itself generally a retarget-boundary block.
		return b.PutProposerTimestamp(in.Hash, in.Timestamp)
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}

	e.unreferredProposerMu.Lock()
	e.unreferredProposer.remove(in.Parent)
	for _, r := range in.ProposerRefs {
		e.unreferredProposer.remove(r)
	}
	e.unreferredProposer.add(in.Hash)
	e.unreferredProposerMu.Unlock()

	e.unreferredTxMu.Lock()
	for _, tx := range in.TxRefs {
		e.unreferredTx.remove(tx)
	}
	e.unreferredTxMu.Unlock()

	e.unconfirmedMu.Lock()
	e.unconfirmed.add(in.Hash)
	e.unconfirmedMu.Unlock()

	e.proposerBestMu.Lock()
	if !e.proposerBest.set || level > e.proposerBest.level {
		e.proposerBest = tipState{hash: in.Hash, level: level, set: true}
	}
	e.proposerBestMu.Unlock()

	return nil, nil, nil
}
