package engine

import (
	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// computeDifficulty implements module E (spec §4.5) for a proposer block b
// at level being inserted with parent p. Grounded on the teacher's
// consensus.RetargetV1 (consensus/pow.go) wiring: the pure arithmetic lives
// in consensus.Retarget, this function only walks the parent chain to find
// the retarget ancestor and supplies the timestamps.
func (e *ChainEngine) computeDifficulty(level uint64, parent, parentDifficulty consensus.Hash, newTimestamp uint64) (consensus.Hash, error) {
	if level%e.cfg.RetargetInterval != 0 {
		return parentDifficulty, nil
	}

	k := e.cfg.RetargetInterval
	var ancestor consensus.Hash
	var ancestorTimestamp uint64

	err := e.db.View(func(v *graph.View) error {
		cur := parent
		// Walk back exactly K-2 parent links from p, per spec §4.5 literally
		// (not "fixed" to K-1; SPEC_FULL.md §9 decision 2).
		for i := uint64(0); i < k-2; i++ {
			p, ok := v.Parent(cur)
			if !ok {
				break
			}
			cur = p
		}
		ancestor = cur
		ts, _ := v.ProposerTimestamp(ancestor)
		ancestorTimestamp = ts
		return nil
	})
	if err != nil {
		return consensus.ZeroHash, consensus.ErrStorage(err)
	}

	return consensus.Retarget(parentDifficulty, k, e.cfg.TargetRate, ancestorTimestamp, newTimestamp)
}
