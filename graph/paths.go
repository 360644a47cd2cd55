package graph

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir returns the on-disk directory for the graph store under datadir,
// grounded on the teacher's ChainDir layout (node/store/paths.go), with the
// per-chain-ID segment dropped since this store serves exactly one DAG
// instance per datadir:
//
//	datadir/graph/
func Dir(datadir string) string {
	return filepath.Join(datadir, "graph")
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func dbPath(dir string) string {
	return filepath.Join(dir, "kv.db")
}

// wipeDir removes dir and everything under it. This is the destructive
// default behavior of Open (spec §9 open question 1): no attempt is made to
// recover derived state from a prior run.
func wipeDir(dir string) error {
	return os.RemoveAll(dir)
}
