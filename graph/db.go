// Package graph implements the Graph Store (spec §4.1): a bbolt-backed
// ordered key-value store of per-block metadata and adjacency lists, with
// two user-defined merge operators (append-hash-list, vote-set-merge)
// emulated as read-modify-write since bbolt has no native merge hook
// (spec §9, "Merge-operator callbacks").
//
// Grounded on the teacher's node/store/db.go: a single bbolt.DB opened under
// a datadir-relative directory, one bucket per logical table, a small JSON
// manifest as the crash-safe commit point (node/store/manifest.go).
package graph

import (
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Table names, one bucket per row of spec §4.1's table list.
var (
	TableProposerLevel     = []byte("proposer_level")
	TableVoterLevel        = []byte("voter_level")
	TableVoterChain        = []byte("voter_chain")
	TableVoterVotedLevel   = []byte("voter_voted_level")
	TableProposerTreeLevel = []byte("proposer_tree_level")
	TableProposerVoteSet   = []byte("proposer_vote_set")
	TableLeaderSequence    = []byte("leader_sequence")
	TableLedgerOrder       = []byte("ledger_order")
	TableProposerTimestamp = []byte("proposer_timestamp")
	TableMiningDifficulty  = []byte("mining_difficulty")
	TableParent            = []byte("parent")
	TableVoteEdges         = []byte("vote_edges")
	TableVoterParent       = []byte("voter_parent")
	TableTxRefs            = []byte("tx_refs")
	TableProposerRefs      = []byte("proposer_refs")
)

var allTables = [][]byte{
	TableProposerLevel, TableVoterLevel, TableVoterChain, TableVoterVotedLevel,
	TableProposerTreeLevel, TableProposerVoteSet, TableLeaderSequence, TableLedgerOrder,
	TableProposerTimestamp, TableMiningDifficulty, TableParent, TableVoteEdges,
	TableVoterParent, TableTxRefs, TableProposerRefs,
}

// Options configures Open.
type Options struct {
	// Reuse, if true and the manifest already marks genesis as seeded,
	// opens the existing datadir instead of wiping it. Per spec §9 open
	// question 1 the destructive behavior remains the default; this is the
	// documented, partial non-destructive path (see SPEC_FULL.md §9).
	Reuse bool
}

// DB is the Graph Store handle.
type DB struct {
	dir      string
	db       *bolt.DB
	manifest *Manifest

	// mergeMu guards the read-modify-write emulation of the merge
	// operators; bbolt transactions already serialize writers, but the
	// mutex documents and enforces the keyspace-local critical section
	// spec §9 calls for independent of bbolt's own locking.
	mergeMu sync.Mutex
}

// Open opens (or destructively reinitializes, per the teacher's present
// behavior) the graph store under datadir.
func Open(datadir string, opts Options) (*DB, error) {
	dir := Dir(datadir)

	existing, err := readManifest(dir)
	seeded := err == nil && existing != nil && existing.GenesisSeeded
	if !(opts.Reuse && seeded) {
		// Destructive-by-default: matches the teacher's unconditional
		// wipe-and-reinit on startup (spec §6, §9 open question 1).
		if err := wipeDir(dir); err != nil {
			return nil, fmt.Errorf("wipe graph dir: %w", err)
		}
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	bdb, err := bolt.Open(dbPath(dir), 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	d := &DB{dir: dir, db: bdb}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range allTables {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	m, err := readManifest(dir)
	if err != nil {
		m = &Manifest{SchemaVersion: SchemaVersionV1}
	}
	if m.SchemaVersion > SchemaVersionV1 {
		_ = bdb.Close()
		return nil, fmt.Errorf("manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
	}
	d.manifest = m
	return d, nil
}

// Close releases the underlying bbolt handle.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// GenesisSeeded reports whether MarkGenesisSeeded has already been called on
// this datadir.
func (d *DB) GenesisSeeded() bool {
	return d.manifest != nil && d.manifest.GenesisSeeded
}

// MarkGenesisSeeded records that genesis has been written, so a later Open
// with Options{Reuse: true} does not re-seed.
func (d *DB) MarkGenesisSeeded() error {
	m := &Manifest{SchemaVersion: SchemaVersionV1, GenesisSeeded: true}
	if err := writeManifestAtomic(d.dir, m); err != nil {
		return err
	}
	d.manifest = m
	return nil
}
