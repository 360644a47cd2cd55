package graph

import "prism.dev/node/consensus"

// AppendHashList emulates the append-hash-list merge operator (spec §4.1,
// §9): read the existing CompactSize-framed hash list at (table, key),
// append h, write it back. Used for the append-only lists proposer_tree_level,
// tx_refs and vote_edges; proposer_refs is written whole with a plain Put.
func (b *Batch) AppendHashList(table, key []byte, h consensus.Hash) error {
	existing := b.Get(table, key)
	list, err := consensus.DecodeHashList(existing)
	if err != nil {
		return err
	}
	list = append(list, h)
	return b.Put(table, key, consensus.EncodeHashList(list))
}

// VoteSetAdd emulates one half of the vote-set-merge operator (spec §4.1,
// §9): read the existing vote set at (table, key), add the (chain, level)
// entry if not already present, write it back. Used for proposer_vote_set.
func (b *Batch) VoteSetAdd(table, key []byte, entry consensus.VoteEntry) error {
	existing := b.Get(table, key)
	set, err := consensus.DecodeVoteSet(existing)
	if err != nil {
		return err
	}
	for _, e := range set {
		if e.Chain == entry.Chain {
			if e.Level == entry.Level {
				return nil
			}
			break
		}
	}
	set = append(set, entry)
	return b.Put(table, key, consensus.EncodeVoteSet(set))
}

// VoteSetRemoveChain emulates the other half of vote-set-merge: remove the
// entry for chain from the vote set at (table, key), if present. Removing a
// chain that never voted for this proposer is a silent no-op, matching
// spec §9 open question 3's resolution (see SPEC_FULL.md §9).
func (b *Batch) VoteSetRemoveChain(table, key []byte, chain uint16) error {
	existing := b.Get(table, key)
	set, err := consensus.DecodeVoteSet(existing)
	if err != nil {
		return err
	}
	idx := -1
	for i, e := range set {
		if e.Chain == chain {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	set = append(set[:idx], set[idx+1:]...)
	return b.Put(table, key, consensus.EncodeVoteSet(set))
}

// VoteSet reads the current vote set at (table, key) without modifying it.
func (v *View) VoteSet(table, key []byte) ([]consensus.VoteEntry, error) {
	return consensus.DecodeVoteSet(v.Get(table, key))
}

// HashList reads the current hash list at (table, key) without modifying it.
func (v *View) HashList(table, key []byte) ([]consensus.Hash, error) {
	return consensus.DecodeHashList(v.Get(table, key))
}
