package engine

import (
	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// insertTransaction inserts a transaction block. Transaction blocks carry
// only a proposer parent (spec §3); the engine's sole bookkeeping duty is
// adding it to unreferred_transaction until some proposer's tx_refs cites
// it (spec §4.2 step 3). No dedicated graph-store table holds transaction
// metadata -- spec §4.1's table list has none -- so existence is tracked
// purely by set membership plus the raw block-store collaborator (§4.7).
func (e *ChainEngine) insertTransaction(in BlockInput) (added, removed []consensus.Hash, err error) {
	var parentFound bool
	if err := e.db.View(func(v *graph.View) error {
		_, parentFound = v.ProposerLevel(in.Parent)
		return nil
	}); err != nil {
		return nil, nil, consensus.ErrStorage(err)
	}
	if !parentFound {
		consensus.MissingParent("transaction", in.Parent)
	}

	e.unreferredTxMu.Lock()
	e.unreferredTx.add(in.Hash)
	e.unreferredTxMu.Unlock()

	return nil, nil, nil
}
