// Command prism-node is a thin demonstration binary: it opens a Chain
// Engine datadir, seeding genesis on first run, then replays a
// newline-delimited JSON block fixture through InsertBlock, printing the
// sizes of the confirmed/deconfirmed transaction-block deltas and then the
// best proposer tip and ledger tip. It is explicitly not
// part of the core (spec §6) -- it exists only to exercise the engine
// end to end. Grounded on the teacher's cmd/rubin-node/main.go flag.FlagSet
// idiom and its testable run(args, stdout, stderr) entry point.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"prism.dev/node/consensus"
	"prism.dev/node/engine"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := engine.DefaultConfig()
	cfg := defaults

	fs := flag.NewFlagSet("prism-node", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.DataDir, "datadir", defaults.DataDir, "node data directory")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: debug|info|warn|error")
	numChains := fs.Uint("voter-chains", uint(defaults.NumVoterChains), "number of parallel voter chains (N)")
	retarget := fs.Uint64("retarget-interval", defaults.RetargetInterval, "proposer levels per difficulty epoch (K)")
	targetRate := fs.Uint64("target-rate", defaults.TargetRate, "target per-chain mining rate (R_target)")
	fixturePath := fs.String("fixture", "", "path to a newline-delimited JSON block fixture")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.NumVoterChains = uint16(*numChains)
	cfg.RetargetInterval = *retarget
	cfg.TargetRate = *targetRate

	if err := engine.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		fmt.Fprintf(stderr, "datadir create failed: %v\n", err)
		return 2
	}

	eng, err := engine.Open(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "open engine: %v\n", err)
		return 1
	}
	defer eng.Close()

	if *fixturePath == "" {
		printTips(stdout, eng)
		return 0
	}

	f, err := os.Open(*fixturePath)
	if err != nil {
		fmt.Fprintf(stderr, "open fixture: %v\n", err)
		return 1
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		in, err := parseFixtureLine([]byte(line))
		if err != nil {
			fmt.Fprintf(stderr, "fixture line %d: %v\n", lineNo, err)
			return 1
		}
		added, removed, err := eng.InsertBlock(in)
		if err != nil {
			fmt.Fprintf(stderr, "fixture line %d: insert_block: %v\n", lineNo, err)
			return 1
		}
		if len(added) > 0 || len(removed) > 0 {
			fmt.Fprintf(stdout, "line %d: added=%d removed=%d\n", lineNo, len(added), len(removed))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "read fixture: %v\n", err)
		return 1
	}

	printTips(stdout, eng)
	return 0
}

func printTips(w io.Writer, eng *engine.ChainEngine) {
	if h, level, ok := eng.BestProposer(); ok {
		fmt.Fprintf(w, "best_proposer level=%d hash=%x\n", level, h[:])
	}
	fmt.Fprintf(w, "ledger_tip=%d\n", eng.LedgerTip())
}

// fixtureBlock is the on-disk JSON shape of one fixture line: hashes are
// hex-encoded, matching the boundary encoding spec §6 describes ("hashes
// are 32-byte big-endian").
type fixtureBlock struct {
	Kind         string   `json:"kind"`
	Hash         string   `json:"hash"`
	Parent       string   `json:"parent"`
	ProposerRefs []string `json:"proposer_refs,omitempty"`
	TxRefs       []string `json:"tx_refs,omitempty"`
	Timestamp    uint64   `json:"timestamp,omitempty"`

	Chain       uint16   `json:"chain,omitempty"`
	VoterParent string   `json:"voter_parent,omitempty"`
	Votes       []string `json:"votes,omitempty"`
}

func parseFixtureLine(line []byte) (engine.BlockInput, error) {
	var fb fixtureBlock
	if err := json.Unmarshal(line, &fb); err != nil {
		return engine.BlockInput{}, fmt.Errorf("decode json: %w", err)
	}

	hash, err := parseHash(fb.Hash)
	if err != nil {
		return engine.BlockInput{}, fmt.Errorf("hash: %w", err)
	}
	parent, err := parseHash(fb.Parent)
	if err != nil {
		return engine.BlockInput{}, fmt.Errorf("parent: %w", err)
	}

	in := engine.BlockInput{Hash: hash, Parent: parent, Timestamp: fb.Timestamp}

	switch fb.Kind {
	case "proposer":
		in.Kind = consensus.KindProposer
		if in.ProposerRefs, err = parseHashes(fb.ProposerRefs); err != nil {
			return engine.BlockInput{}, fmt.Errorf("proposer_refs: %w", err)
		}
		if in.TxRefs, err = parseHashes(fb.TxRefs); err != nil {
			return engine.BlockInput{}, fmt.Errorf("tx_refs: %w", err)
		}
	case "voter":
		in.Kind = consensus.KindVoter
		in.Chain = fb.Chain
		if in.VoterParent, err = parseHash(fb.VoterParent); err != nil {
			return engine.BlockInput{}, fmt.Errorf("voter_parent: %w", err)
		}
		if in.Votes, err = parseHashes(fb.Votes); err != nil {
			return engine.BlockInput{}, fmt.Errorf("votes: %w", err)
		}
	case "transaction":
		in.Kind = consensus.KindTransaction
	default:
		return engine.BlockInput{}, fmt.Errorf("unknown kind %q", fb.Kind)
	}
	return in, nil
}

func parseHash(s string) (consensus.Hash, error) {
	var h consensus.Hash
	if s == "" {
		return h, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("expected %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func parseHashes(ss []string) ([]consensus.Hash, error) {
	out := make([]consensus.Hash, 0, len(ss))
	for _, s := range ss {
		h, err := parseHash(s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
