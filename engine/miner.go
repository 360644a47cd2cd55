package engine

import "prism.dev/node/consensus"

// Miner is the read-only "template-building contract" of spec §6 and
// SPEC_FULL.md §4.8: exactly the query surface a mining loop needs
// (current tips, unreferred sets, unvoted proposers, difficulty), with no
// PoW search, transaction selection or block assembly -- those remain the
// out-of-scope miner's job per spec §1. Grounded on the teacher's
// node.Miner/MinerConfig shape (node/miner.go), a struct wrapping engine
// handles, stripped of everything but the read methods.
type Miner struct {
	engine *ChainEngine
}

// NewMiner wraps engine in the read-only template-building contract.
func NewMiner(engine *ChainEngine) *Miner {
	return &Miner{engine: engine}
}

func (m *Miner) BestProposer() (consensus.Hash, uint64, bool) {
	return m.engine.BestProposer()
}

func (m *Miner) BestVoter(chain uint16) (consensus.Hash, uint64, bool) {
	return m.engine.BestVoter(chain)
}

func (m *Miner) UnreferredProposer() []consensus.Hash {
	return m.engine.UnreferredProposer()
}

func (m *Miner) UnreferredTransaction() []consensus.Hash {
	return m.engine.UnreferredTransaction()
}

func (m *Miner) UnvotedProposer(voterTip consensus.Hash) ([]consensus.Hash, error) {
	return m.engine.UnvotedProposer(voterTip)
}

func (m *Miner) ProposerDifficulty(h consensus.Hash) (consensus.Hash, bool) {
	return m.engine.ProposerDifficulty(h)
}
