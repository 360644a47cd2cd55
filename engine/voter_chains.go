package engine

import (
	"fmt"
	"sort"

	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// voteOp is one vote-set-merge operand produced by the fork-switch delta
// walk of spec §4.3 step 4.
type voteOp struct {
	proposer consensus.Hash
	chain    uint16
	add      bool
	level    uint64 // voter-block level; only meaningful when add is true
}

// insertVoter implements module C (spec §4.3): writing the voter block's
// own edges, updating the per-chain best-tip, and -- on a tip advance --
// computing and applying the vote-set delta caused by the chain switch,
// then handing off to module D (leader & ledger).
//
// Grounded on the teacher's disconnect/connect walk in node/store/reorg.go
// (findForkPoint / the disconnect-to-fork-then-connect-to-tip loop): the
// same "walk both sides to a common ancestor, accumulate one side as undone
// and the other as redone" shape, generalized from UTXO undo/redo to vote
// add/remove.
func (e *ChainEngine) insertVoter(in BlockInput) (added, removed []consensus.Hash, err error) {
	if int(in.Chain) >= e.n {
		return nil, nil, consensus.ErrStorage(fmt.Errorf("voter chain %d out of range [0,%d)", in.Chain, e.n))
	}

	var vpLevel, proposerParentLevel uint64
	var vpFound, proposerFound bool
	if err := e.db.View(func(v *graph.View) error {
		vpLevel, vpFound = v.VoterLevel(in.VoterParent)
		proposerParentLevel, proposerFound = v.ProposerLevel(in.Parent)
		return nil
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}
	if !vpFound {
		consensus.MissingParent("voter", in.VoterParent)
	}
	if !proposerFound {
		consensus.MissingParent("voter-proposer-parent", in.Parent)
	}

	level := vpLevel + 1

	if err := e.db.Update(func(b *graph.Batch) error {
		if err := b.PutVoterParent(in.Hash, in.VoterParent); err != nil {
			return err
		}
		if err := b.PutVoterChain(in.Hash, in.Chain); err != nil {
			return err
		}
		if err := b.PutVoterLevel(in.Hash, level); err != nil {
			return err
		}
		for _, p := range in.Votes {
			if err := b.AppendVoteEdge(in.Hash, p); err != nil {
				return err
			}
		}
		// voter_voted_level[b] = level(proposer parent): the voter commits
		// to having observed proposers up to its proposer parent's level.
		return b.PutVoterVotedLevel(in.Hash, proposerParentLevel)
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}

	mu := &e.voterBestMu[in.Chain]
	mu.Lock()
	defer mu.Unlock()

	prevBest := e.voterBest[in.Chain]
	if prevBest.set && level <= prevBest.level {
		// Not a tip advance: no vote-set delta, no leader/ledger work.
		return nil, nil, nil
	}

	ops, affectedLevels, err := e.computeVoteDelta(in, prevBest, level)
	if err != nil {
		return nil, nil, err
	}

	if err := e.db.Update(func(b *graph.Batch) error {
		for _, op := range ops {
			if op.add {
				if err := b.AddVote(op.proposer, consensus.VoteEntry{Chain: op.chain, Level: op.level}); err != nil {
					return err
				}
			} else if err := b.RemoveVote(op.proposer, op.chain); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}

	e.voterBest[in.Chain] = tipState{hash: in.Hash, level: level, set: true}

	return e.reelectAndRebuildLedger(affectedLevels)
}

// computeVoteDelta implements spec §4.3 step 4: the two-pointer walk from
// vp (= in.VoterParent) and the previous best tip down to their common
// ancestor, followed by b's own votes. Because level(b) > prevBest.level is
// already established by the caller, level(vp) >= prevBest.level always
// holds, so only the "to" pointer ever steps back to reach the level of
// "from" -- "from" never has to step back to reach "to", matching the walk
// as spec.md describes it.
func (e *ChainEngine) computeVoteDelta(in BlockInput, prevBest tipState, level uint64) ([]voteOp, []uint64, error) {
	var ops []voteOp
	affected := make(map[consensus.Hash]struct{})

	if prevBest.set {
		if err := e.db.View(func(v *graph.View) error {
			to := in.VoterParent
			from := prevBest.hash
			toLevel, _ := v.VoterLevel(to)
			fromLevel, _ := v.VoterLevel(from)

			for toLevel > fromLevel {
				votes, err := v.VoteEdges(to)
				if err != nil {
					return err
				}
				for _, p := range votes {
					ops = append(ops, voteOp{proposer: p, chain: in.Chain, add: true, level: toLevel})
					affected[p] = struct{}{}
				}
				parent, ok := v.VoterParent(to)
				if !ok {
					break
				}
				to = parent
				toLevel, _ = v.VoterLevel(to)
			}

			for to != from {
				toVotes, err := v.VoteEdges(to)
				if err != nil {
					return err
				}
				for _, p := range toVotes {
					ops = append(ops, voteOp{proposer: p, chain: in.Chain, add: true, level: toLevel})
					affected[p] = struct{}{}
				}
				fromVotes, err := v.VoteEdges(from)
				if err != nil {
					return err
				}
				for _, p := range fromVotes {
					ops = append(ops, voteOp{proposer: p, chain: in.Chain, add: false})
					affected[p] = struct{}{}
				}
				toParent, toOK := v.VoterParent(to)
				fromParent, fromOK := v.VoterParent(from)
				if !toOK || !fromOK {
					break
				}
				to, from = toParent, fromParent
				toLevel, _ = v.VoterLevel(to)
			}
			return nil
		}); err != nil {
			return nil, nil, consensus.ErrStorage(err)
		}
	}

	// Finally, b's own votes are added at level(b).
	for _, p := range in.Votes {
		ops = append(ops, voteOp{proposer: p, chain: in.Chain, add: true, level: level})
		affected[p] = struct{}{}
	}

	affectedLevels, err := e.proposerLevelsOf(affected)
	if err != nil {
		return nil, nil, err
	}
	return ops, affectedLevels, nil
}

// proposerLevelsOf resolves each touched proposer hash to its level and
// returns the distinct levels in ascending order, as module D's
// affected_levels scan requires.
func (e *ChainEngine) proposerLevelsOf(touched map[consensus.Hash]struct{}) ([]uint64, error) {
	levelSet := make(map[uint64]struct{}, len(touched))
	if err := e.db.View(func(v *graph.View) error {
		for h := range touched {
			lvl, ok := v.ProposerLevel(h)
			if !ok {
				continue
			}
			levelSet[lvl] = struct{}{}
		}
		return nil
	}); err != nil {
		return nil, consensus.ErrStorage(err)
	}
	levels := make([]uint64, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels, nil
}
