package engine

import (
	"os"
	"testing"

	"prism.dev/node/consensus"
	"prism.dev/node/graph"
)

func testConfig(t *testing.T, n uint16) Config {
	t.Helper()
	dir, err := os.MkdirTemp("", "engine-test-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.NumVoterChains = n
	cfg.RetargetInterval = 1000 // high enough that no test scenario crosses a retarget boundary
	cfg.TargetRate = 1
	return cfg
}

func openTestEngine(t *testing.T, n uint16) *ChainEngine {
	t.Helper()
	eng, err := Open(testConfig(t, n))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func h(label string) consensus.Hash {
	return consensus.Sha3_256([]byte(label))
}

func mustInsert(t *testing.T, e *ChainEngine, in BlockInput) (added, removed []consensus.Hash) {
	t.Helper()
	added, removed, err := e.InsertBlock(in)
	if err != nil {
		t.Fatalf("InsertBlock(%x): %v", in.Hash[:4], err)
	}
	return added, removed
}

func hashSetEqual(t *testing.T, got []consensus.Hash, want ...consensus.Hash) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("set size mismatch: got %d want %d (%v)", len(got), len(want), got)
	}
	seen := make(map[consensus.Hash]bool, len(got))
	for _, g := range got {
		seen[g] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Fatalf("missing %x in %v", w[:4], got)
		}
	}
}

func proposersAtLevel(t *testing.T, e *ChainEngine, level uint64) []consensus.Hash {
	t.Helper()
	var out []consensus.Hash
	if err := e.db.View(func(v *graph.View) error {
		var err error
		out, err = v.ProposersAtLevel(level)
		return err
	}); err != nil {
		t.Fatalf("ProposersAtLevel(%d): %v", level, err)
	}
	return out
}

func txRefsOf(t *testing.T, e *ChainEngine, proposer consensus.Hash) []consensus.Hash {
	t.Helper()
	var out []consensus.Hash
	if err := e.db.View(func(v *graph.View) error {
		var err error
		out, err = v.TxRefs(proposer)
		return err
	}); err != nil {
		t.Fatalf("TxRefs: %v", err)
	}
	return out
}

func proposerRefsOf(t *testing.T, e *ChainEngine, proposer consensus.Hash) []consensus.Hash {
	t.Helper()
	var out []consensus.Hash
	if err := e.db.View(func(v *graph.View) error {
		var err error
		out, err = v.ProposerRefs(proposer)
		return err
	}); err != nil {
		t.Fatalf("ProposerRefs: %v", err)
	}
	return out
}

func votesFor(t *testing.T, e *ChainEngine, proposer consensus.Hash) []consensus.VoteEntry {
	t.Helper()
	var out []consensus.VoteEntry
	if err := e.db.View(func(v *graph.View) error {
		var err error
		out, err = v.VotesFor(proposer)
		return err
	}); err != nil {
		t.Fatalf("VotesFor: %v", err)
	}
	return out
}

func leaderAt(t *testing.T, e *ChainEngine, level uint64) (consensus.Hash, bool) {
	t.Helper()
	var h consensus.Hash
	var ok bool
	if err := e.db.View(func(v *graph.View) error {
		h, ok = v.Leader(level)
		return nil
	}); err != nil {
		t.Fatalf("Leader: %v", err)
	}
	return h, ok
}

// TestGenesis_S1 covers spec.md §8 scenario S1.
func TestGenesis_S1(t *testing.T) {
	const n = 5
	e := openTestEngine(t, n)
	gp := GenesisProposer()

	level, ok := e.ProposerLevel(gp)
	if !ok || level != 0 {
		t.Fatalf("proposer_level[gp] = (%d,%v), want (0,true)", level, ok)
	}

	best, bestLevel, bestSet := e.BestProposer()
	if !bestSet || best != gp || bestLevel != 0 {
		t.Fatalf("best_proposer = (%x,%d,%v), want gp at level 0", best[:4], bestLevel, bestSet)
	}

	if got := proposersAtLevel(t, e, 0); len(got) != 1 || got[0] != gp {
		t.Fatalf("proposer_tree_level[0] = %v, want [gp]", got)
	}

	wantVotes := make([]consensus.VoteEntry, n)
	for c := 0; c < n; c++ {
		wantVotes[c] = consensus.VoteEntry{Chain: uint16(c), Level: 0}
	}
	gotVotes := votesFor(t, e, gp)
	if len(gotVotes) != n {
		t.Fatalf("vote_set(gp) = %+v, want %d entries", gotVotes, n)
	}
	for c := 0; c < n; c++ {
		if gotVotes[c] != wantVotes[c] {
			t.Fatalf("vote_set(gp)[%d] = %+v, want %+v", c, gotVotes[c], wantVotes[c])
		}
	}

	leader, ok := leaderAt(t, e, 0)
	if !ok || leader != gp {
		t.Fatalf("leader_sequence[0] = (%x,%v), want gp", leader[:4], ok)
	}

	hashSetEqual(t, e.UnreferredProposer(), gp)
	if got := e.UnreferredTransaction(); len(got) != 0 {
		t.Fatalf("unreferred_transaction should be empty, got %v", got)
	}

	entries, err := e.LedgerSlice(0, 0)
	if err != nil {
		t.Fatalf("LedgerSlice: %v", err)
	}
	if len(entries) != 1 || entries[0].Proposer != gp || entries[0].Level != 0 {
		t.Fatalf("ledger_order[0] = %+v, want [gp]", entries)
	}
}

// TestTxThenTwoProposers_S2 covers spec.md §8 scenario S2.
func TestTxThenTwoProposers_S2(t *testing.T) {
	const n = 5
	e := openTestEngine(t, n)
	gp := GenesisProposer()

	tHash := h("T")
	mustInsert(t, e, BlockInput{Kind: consensus.KindTransaction, Hash: tHash, Parent: gp})

	p1 := h("P1")
	mustInsert(t, e, BlockInput{Kind: consensus.KindProposer, Hash: p1, Parent: gp, Timestamp: 1})

	p2 := h("P2")
	mustInsert(t, e, BlockInput{
		Kind: consensus.KindProposer, Hash: p2, Parent: gp, Timestamp: 2,
		ProposerRefs: []consensus.Hash{p1}, TxRefs: []consensus.Hash{tHash},
	})

	proposersAt1 := proposersAtLevel(t, e, 1)
	if len(proposersAt1) != 2 || proposersAt1[0] != p1 || proposersAt1[1] != p2 {
		t.Fatalf("proposer_tree_level[1] = %v, want [P1,P2]", proposersAt1)
	}

	best, bestLevel, bestSet := e.BestProposer()
	if !bestSet || best != p1 || bestLevel != 1 {
		t.Fatalf("best_proposer = (%x,%d), want P1 at level 1", best[:4], bestLevel)
	}

	hashSetEqual(t, e.UnreferredProposer(), p2)
	if got := e.UnreferredTransaction(); len(got) != 0 {
		t.Fatalf("unreferred_transaction should be empty after P2 references T, got %v", got)
	}
	hashSetEqual(t, e.UnconfirmedProposer(), p1, p2)

	if got := txRefsOf(t, e, p2); len(got) != 1 || got[0] != tHash {
		t.Fatalf("tx_refs(P2) = %v, want [T]", got)
	}

	if got := proposerRefsOf(t, e, p2); len(got) != 2 || got[0] != gp || got[1] != p1 {
		t.Fatalf("proposer_refs(P2) = %v, want [gp,P1]", got)
	}
}

// TestVoteAndFork_S3 covers spec.md §8 scenario S3: a voter on chain 0 votes
// for P1, then a sibling fork on the same chain votes for P2 but does not
// yet overtake (same level, first-arrival wins); a child of the fork then
// extends past the tie, switching chain 0's vote from P1 to P2.
func TestVoteAndFork_S3(t *testing.T) {
	const n = 5
	e := openTestEngine(t, n)
	gp := GenesisProposer()
	gv0 := GenesisVoter(0)

	p1 := h("P1")
	mustInsert(t, e, BlockInput{Kind: consensus.KindProposer, Hash: p1, Parent: gp, Timestamp: 1})
	p2 := h("P2")
	mustInsert(t, e, BlockInput{Kind: consensus.KindProposer, Hash: p2, Parent: gp, Timestamp: 2, ProposerRefs: []consensus.Hash{p1}})

	v := h("V")
	mustInsert(t, e, BlockInput{
		Kind: consensus.KindVoter, Hash: v, Chain: 0, VoterParent: gv0, Parent: gp,
		Votes: []consensus.Hash{p1},
	})
	if got := votesFor(t, e, p1); len(got) != 1 || got[0] != (consensus.VoteEntry{Chain: 0, Level: 1}) {
		t.Fatalf("vote_set(P1) after V = %+v, want [(0,1)]", got)
	}

	vPrime := h("Vprime")
	mustInsert(t, e, BlockInput{
		Kind: consensus.KindVoter, Hash: vPrime, Chain: 0, VoterParent: gv0, Parent: gp,
		Votes: []consensus.Hash{p2},
	})
	if got := votesFor(t, e, p1); len(got) != 1 || got[0] != (consensus.VoteEntry{Chain: 0, Level: 1}) {
		t.Fatalf("vote_set(P1) after Vprime (tied level) = %+v, want unchanged [(0,1)]", got)
	}
	if got := votesFor(t, e, p2); len(got) != 0 {
		t.Fatalf("vote_set(P2) after Vprime (tied level) = %+v, want empty", got)
	}

	vPrime2 := h("Vprime2")
	mustInsert(t, e, BlockInput{
		Kind: consensus.KindVoter, Hash: vPrime2, Chain: 0, VoterParent: vPrime, Parent: gp,
	})
	if got := votesFor(t, e, p1); len(got) != 0 {
		t.Fatalf("vote_set(P1) after Vprime2 = %+v, want empty (chain 0 switched)", got)
	}
	if got := votesFor(t, e, p2); len(got) != 1 || got[0] != (consensus.VoteEntry{Chain: 0, Level: 1}) {
		t.Fatalf("vote_set(P2) after Vprime2 = %+v, want [(0,1)]", got)
	}
}

// TestLeaderConfirmAndReorg_S4_S5 covers spec.md §8 scenarios S4 and S5: a
// chain-by-chain majority vote confirms P2 as the level-1 leader, then a
// chain-by-chain reorg away from P2 drops it back below threshold and
// deconfirms it.
func TestLeaderConfirmAndReorg_S4_S5(t *testing.T) {
	const n = 5
	e := openTestEngine(t, n)
	gp := GenesisProposer()

	p1 := h("P1")
	mustInsert(t, e, BlockInput{Kind: consensus.KindProposer, Hash: p1, Parent: gp, Timestamp: 1})
	p2 := h("P2")
	mustInsert(t, e, BlockInput{Kind: consensus.KindProposer, Hash: p2, Parent: gp, Timestamp: 2, ProposerRefs: []consensus.Hash{p1}})
	tHash := h("T")
	mustInsert(t, e, BlockInput{Kind: consensus.KindTransaction, Hash: tHash, Parent: gp})

	// p2WithTx is the proposer under majority vote in this scenario; it
	// carries T so the S4 "(added=[T], removed=[])" assertion has a
	// concrete transaction payload to confirm and deconfirm.
	p2WithTx := h("P2-with-T")
	mustInsert(t, e, BlockInput{
		Kind: consensus.KindProposer, Hash: p2WithTx, Parent: gp, Timestamp: 4,
		ProposerRefs: []consensus.Hash{p1}, TxRefs: []consensus.Hash{tHash},
	})

	// Chain 0 votes for P2WithTx directly off genesis.
	gv0 := GenesisVoter(0)
	v0 := h("V0")
	mustInsert(t, e, BlockInput{Kind: consensus.KindVoter, Hash: v0, Chain: 0, VoterParent: gv0, Parent: gp, Votes: []consensus.Hash{p2WithTx}})

	var sawConfirm, sawDeconfirm bool
	var confirmedAdded, deconfirmedRemoved []consensus.Hash

	// Chains 1..4 each cast one level-1 vote for P2WithTx; the third such
	// insertion (bringing the total to floor(5/2)+2 = 4) must cross the
	// leader threshold.
	for c := uint16(1); c < n; c++ {
		gvc := GenesisVoter(c)
		vc := h("Vc-" + string(rune('0'+c)))
		added, removed := mustInsert(t, e, BlockInput{Kind: consensus.KindVoter, Hash: vc, Chain: c, VoterParent: gvc, Parent: gp, Votes: []consensus.Hash{p2WithTx}})
		if len(added) > 0 {
			sawConfirm = true
			confirmedAdded = added
		}
		if len(removed) > 0 {
			t.Fatalf("unexpected removal during S4 confirmation phase: %v", removed)
		}
	}
	if !sawConfirm {
		t.Fatalf("S4: expected exactly one insertion to cross the leader threshold and confirm")
	}
	if len(confirmedAdded) != 1 || confirmedAdded[0] != tHash {
		t.Fatalf("S4: added = %v, want [T]", confirmedAdded)
	}
	leader, ok := leaderAt(t, e, 1)
	if !ok || leader != p2WithTx {
		t.Fatalf("leader_sequence[1] = (%x,%v), want P2WithTx", leader[:4], ok)
	}
	entries, err := e.LedgerSlice(1, 1)
	if err != nil {
		t.Fatalf("LedgerSlice: %v", err)
	}
	if len(entries) != 1 || entries[0].Proposer != p2WithTx {
		t.Fatalf("ledger_order[1] = %+v, want leading with P2WithTx", entries)
	}

	// S5: fork each of the voting chains 1..4 back to their own genesis with
	// a two-block, vote-free extension, switching each chain's vote away
	// from P2WithTx. Once the remaining vote count drops to or below the
	// threshold, the leader is deconfirmed.
	for c := uint16(1); c < n; c++ {
		gvc := GenesisVoter(c)
		w1 := h("W1-" + string(rune('0'+c)))
		mustInsert(t, e, BlockInput{Kind: consensus.KindVoter, Hash: w1, Chain: c, VoterParent: gvc, Parent: gp})
		w2 := h("W2-" + string(rune('0'+c)))
		added, removed := mustInsert(t, e, BlockInput{Kind: consensus.KindVoter, Hash: w2, Chain: c, VoterParent: w1, Parent: gp})
		if len(removed) > 0 {
			sawDeconfirm = true
			deconfirmedRemoved = removed
		}
		if len(added) > 0 {
			t.Fatalf("unexpected confirmation during S5 reorg phase: %v", added)
		}
	}
	if !sawDeconfirm {
		t.Fatalf("S5: expected exactly one reorg insertion to drop below threshold and deconfirm")
	}
	if len(deconfirmedRemoved) != 1 || deconfirmedRemoved[0] != tHash {
		t.Fatalf("S5: removed = %v, want [T]", deconfirmedRemoved)
	}
	if _, ok := leaderAt(t, e, 1); ok {
		t.Fatalf("leader_sequence[1] should be deleted after S5")
	}
}
