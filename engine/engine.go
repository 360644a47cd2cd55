package engine

import (
	"errors"
	"sync"

	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

// ChainEngine is the structured block-DAG state engine of spec §2: the
// graph store plus the other four cooperating modules (proposer tree, voter
// chains, leader & ledger, difficulty control) and the in-memory guarded
// state §3 describes as reconstructable from the store.
//
// Locking follows spec §5 exactly: each mutable in-memory datum is guarded
// independently. The inserting chain's entry of voterBestMu is held across
// the vote-delta computation of a voter InsertBlock call; the ledger
// rebuild additionally acquires unconfirmedMu and then ledgerTipMu before
// the voter-best lock is released. No other engine lock is acquired while
// holding ledgerTipMu, per §5's ordering rule.
type ChainEngine struct {
	cfg Config
	db  *graph.DB
	n   int

	blocks *RawBlockStore

	proposerBestMu sync.RWMutex
	proposerBest   tipState

	voterBestMu []sync.RWMutex
	voterBest   []tipState

	unreferredProposerMu sync.Mutex
	unreferredProposer   hashSet

	unreferredTxMu sync.Mutex
	unreferredTx   hashSet

	unconfirmedMu sync.Mutex
	unconfirmed   hashSet

	ledgerTipMu sync.Mutex
	ledgerTip   int64 // -1 until genesis seeds level 0
}

// Open opens the graph store under cfg.DataDir, seeding genesis if the
// store is fresh, and rebuilding the in-memory guarded state from
// persisted tables otherwise (the partial non-destructive path of
// SPEC_FULL.md §9 decision 1).
func Open(cfg Config) (*ChainEngine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	db, err := graph.Open(cfg.DataDir, graph.Options{Reuse: true})
	if err != nil {
		return nil, err
	}

	e := &ChainEngine{
		cfg:                cfg,
		db:                 db,
		n:                  int(cfg.NumVoterChains),
		blocks:             newRawBlockStore(cfg.DataDir),
		voterBestMu:        make([]sync.RWMutex, cfg.NumVoterChains),
		voterBest:          make([]tipState, cfg.NumVoterChains),
		unreferredProposer: make(hashSet),
		unreferredTx:       make(hashSet),
		unconfirmed:        make(hashSet),
		ledgerTip:          -1,
	}

	if err := e.blocks.open(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if db.GenesisSeeded() {
		if err := e.rebuildFromStore(); err != nil {
			_ = db.Close()
			return nil, err
		}
		return e, nil
	}

	if err := e.seedGenesis(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.MarkGenesisSeeded(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the engine's storage handles.
func (e *ChainEngine) Close() error {
	return e.db.Close()
}

// InsertBlock is the sole mutating entry point (spec §6): it dispatches by
// kind, commits the graph/leader/ledger batches in order, and returns the
// confirmed/deconfirmed transaction-block deltas.
func (e *ChainEngine) InsertBlock(in BlockInput) (added, removed []consensus.Hash, err error) {
	switch in.Kind {
	case consensus.KindProposer:
		return e.insertProposer(in)
	case consensus.KindVoter:
		return e.insertVoter(in)
	case consensus.KindTransaction:
		return e.insertTransaction(in)
	default:
		return nil, nil, consensus.ErrStorage(errors.New("engine: unknown block kind"))
	}
}
