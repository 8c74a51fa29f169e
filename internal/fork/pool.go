// Package fork implements the fork pool: branches of blocks anchored to
// a known main-chain block but not themselves on the main chain.
package fork

import (
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

// ID identifies a fork by its anchor and endpoint.
type ID struct {
	ForkHash string // hash of the main-chain block the fork is anchored to
	ForkIdx  uint64 // index of the anchor block
	EndHash  string // hash of the fork's last block
	EndIdx   uint64 // index of the fork's last block
}

// Fork is a non-empty ordered sequence of adjacent blocks not on the main
// chain, anchored to a main-chain block by hash.
type Fork []*block.Block

func (f Fork) first() *block.Block { return f[0] }
func (f Fork) last() *block.Block  { return f[len(f)-1] }

func idOf(f Fork) ID {
	return ID{
		ForkHash: f.first().PrevHash,
		ForkIdx:  f.first().Idx - 1,
		EndHash:  f.last().Hash,
		EndIdx:   f.last().Idx,
	}
}

// Pool is the two-level map from fork_hash -> end_hash -> Fork.
type Pool struct {
	byAnchor map[string]map[string]Fork
}

// NewPool creates an empty fork pool.
func NewPool() *Pool {
	return &Pool{byAnchor: make(map[string]map[string]Fork)}
}

// Insert derives the fork's ID from its first and last blocks and inserts
// it under the two-level key.
func (p *Pool) Insert(f Fork) ID {
	id := idOf(f)
	p.insertAt(id, f)
	return id
}

func (p *Pool) insertAt(id ID, f Fork) {
	inner, ok := p.byAnchor[id.ForkHash]
	if !ok {
		inner = make(map[string]Fork)
		p.byAnchor[id.ForkHash] = inner
	}
	inner[id.EndHash] = f
}

// Remove removes and returns the fork at (forkHash, endHash), cleaning up
// the inner map if it becomes empty. The second return value reports
// whether a fork was found.
func (p *Pool) Remove(forkHash, endHash string) (Fork, bool) {
	inner, ok := p.byAnchor[forkHash]
	if !ok {
		return nil, false
	}
	f, ok := inner[endHash]
	if !ok {
		return nil, false
	}
	delete(inner, endHash)
	if len(inner) == 0 {
		delete(p.byAnchor, forkHash)
	}
	return f, true
}

// FindByEndHash returns the fork whose current tip hash is endHash,
// searching every anchor. Used to decide whether an incoming block
// extends an existing fork.
func (p *Pool) FindByEndHash(endHash string) (ID, Fork, bool) {
	for forkHash, inner := range p.byAnchor {
		if f, ok := inner[endHash]; ok {
			return ID{ForkHash: forkHash, EndHash: endHash, ForkIdx: f.first().Idx - 1, EndIdx: f.last().Idx}, f, true
		}
	}
	return ID{}, nil, false
}

// Find returns the first fork containing a block satisfying predicate,
// along with that fork's ID and the matching block.
func (p *Pool) Find(predicate func(*block.Block) bool) (ID, Fork, *block.Block, bool) {
	for forkHash, inner := range p.byAnchor {
		for endHash, f := range inner {
			for _, b := range f {
				if predicate(b) {
					return ID{ForkHash: forkHash, EndHash: endHash, ForkIdx: f.first().Idx - 1, EndIdx: f.last().Idx}, f, b, true
				}
			}
		}
	}
	return ID{}, nil, nil, false
}

// Longest scans every fork in the pool and returns the one whose tip sits
// at the highest chain index. Comparing by EndIdx rather than by raw
// slice length is what makes this comparable to the main chain's own
// length regardless of how deep each fork's anchor is.
func (p *Pool) Longest() (Fork, ID, bool) {
	var best Fork
	var bestID ID
	found := false
	for forkHash, inner := range p.byAnchor {
		for endHash, f := range inner {
			if !found || f.last().Idx > best.last().Idx {
				best = f
				bestID = ID{ForkHash: forkHash, EndHash: endHash, ForkIdx: f.first().Idx - 1, EndIdx: f.last().Idx}
				found = true
			}
		}
	}
	return best, bestID, found
}

// Extend pops the fork at (forkHash, endHash), appends b (which must
// extend the fork's current end per the classification table), and
// reinserts it under the new endpoint.
func (p *Pool) Extend(forkHash, endHash string, b *block.Block) (ID, bool) {
	f, ok := p.Remove(forkHash, endHash)
	if !ok {
		return ID{}, false
	}
	extended := append(append(Fork{}, f...), b)
	return p.Insert(extended), true
}

// Nest clones the fork at (forkHash, endHash) up to and including the
// block whose hash equals b.PrevHash, appends b, and inserts the result
// as a new fork. The original fork is left untouched: two forks may now
// share a prefix, which is fine because forks are indexed by endpoint as
// well as anchor.
func (p *Pool) Nest(forkHash, endHash string, b *block.Block) (ID, bool) {
	inner, ok := p.byAnchor[forkHash]
	if !ok {
		return ID{}, false
	}
	f, ok := inner[endHash]
	if !ok {
		return ID{}, false
	}
	cut := -1
	for i, bb := range f {
		if bb.Hash == b.PrevHash {
			cut = i
			break
		}
	}
	if cut < 0 {
		return ID{}, false
	}
	prefix := make(Fork, cut+1)
	copy(prefix, f[:cut+1])
	nested := append(prefix, b)
	return p.Insert(nested), true
}

// RetainAnchors drops every fork whose anchor hash is not in validAnchors.
// Called after the main chain is rewritten by a merge, since a fork's
// anchor may no longer sit on the main chain.
func (p *Pool) RetainAnchors(validAnchors map[string]bool) {
	for forkHash := range p.byAnchor {
		if !validAnchors[forkHash] {
			delete(p.byAnchor, forkHash)
		}
	}
}

// Clear removes every fork from the pool.
func (p *Pool) Clear() {
	p.byAnchor = make(map[string]map[string]Fork)
}

// Len returns the total number of forks across all anchors.
func (p *Pool) Len() int {
	n := 0
	for _, inner := range p.byAnchor {
		n += len(inner)
	}
	return n
}
