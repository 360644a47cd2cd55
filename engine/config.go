// Package engine implements the Chain Engine (spec §2): the proposer tree,
// voter chains, leader election and ledger derivation, and difficulty
// retargeting, on top of the graph store.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the process configuration for a ChainEngine, adapted from the
// teacher's node.Config (node/config.go) with the network-layer fields
// (Network, BindAddr, Peers, MaxPeers) dropped -- those belong to the
// out-of-scope network transport (spec §1) -- and the protocol parameters
// of spec §3/§4.5 added in their place.
type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`

	// NumVoterChains is N: the number of parallel voter chains (spec §3).
	NumVoterChains uint16 `json:"num_voter_chains"`
	// RetargetInterval is K: proposer levels between difficulty
	// adjustments (spec §4.5).
	RetargetInterval uint64 `json:"retarget_interval"`
	// TargetRate is R_target, the target per-chain mining rate (spec §4.5).
	TargetRate uint64 `json:"target_rate"`
	// GenesisDifficulty is D0, the initial proposer difficulty (spec §3).
	GenesisDifficulty [32]byte `json:"-"`
	// GenesisTimestamp is stored as proposer_timestamp[G_p]. The retarget
	// ancestor walk stops at level L-K+1 >= 1, so it never reads this value.
	GenesisTimestamp uint64 `json:"genesis_timestamp"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".prism"
	}
	return filepath.Join(home, ".prism")
}

// DefaultConfig returns a usable single-engine configuration: 7 voter
// chains, a 100-level retarget interval, target rate 1 (one vote per chain
// per level), matching the scale the teacher's devnet defaults favor.
func DefaultConfig() Config {
	d0 := [32]byte{}
	d0[0] = 0x7f // high initial difficulty (easy target) so devnet fixtures confirm quickly
	return Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          "info",
		NumVoterChains:    7,
		RetargetInterval:  100,
		TargetRate:        1,
		GenesisDifficulty: d0,
		GenesisTimestamp:  0,
	}
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.NumVoterChains == 0 {
		return errors.New("num_voter_chains must be > 0")
	}
	if cfg.RetargetInterval < 2 {
		return errors.New("retarget_interval must be >= 2 (needs at least K-2 >= 0 ancestor links)")
	}
	if cfg.TargetRate == 0 {
		return errors.New("target_rate must be > 0")
	}
	return nil
}
