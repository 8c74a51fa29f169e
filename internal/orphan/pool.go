// Package orphan implements the orphan pool: branches of blocks whose
// root's parent is not (yet) known anywhere in the chain or fork pool.
package orphan

import "github.com/Klingon-tech/klingnet-chain/pkg/block"

// Branch is a non-empty ordered sequence of adjacent blocks, built
// backwards as earlier ancestors arrive. It is keyed in the Pool by the
// hash of the still-missing parent of its first (earliest) block.
type Branch []*block.Block

func (b Branch) root() *block.Block { return b[0] }
func (b Branch) tip() *block.Block  { return b[len(b)-1] }

// Pool maps missing-parent-hash -> Branch. A block whose parent is
// unknown arrives before its ancestors do, so branches grow at the
// front as each newly-arrived block resolves the previous missing
// parent and introduces one of its own.
type Pool struct {
	byMissingParent map[string]Branch
}

// NewPool creates an empty orphan pool.
func NewPool() *Pool {
	return &Pool{byMissingParent: make(map[string]Branch)}
}

// Insert records b as an orphan branch waiting on its own parent.
func (p *Pool) Insert(b *block.Block) {
	p.byMissingParent[b.PrevHash] = Branch{b}
}

// ExtendOrphan consumes the branch that was waiting on b's hash (b is the
// parent that branch was missing) and prepends b to it, re-keying the
// result under b's own prev_hash since that is the new missing ancestor.
// Reports whether a branch was found to extend.
func (p *Pool) ExtendOrphan(b *block.Block) bool {
	branch, ok := p.byMissingParent[b.Hash]
	if !ok {
		return false
	}
	delete(p.byMissingParent, b.Hash)
	extended := make(Branch, 0, len(branch)+1)
	extended = append(extended, b)
	extended = append(extended, branch...)
	p.byMissingParent[b.PrevHash] = extended
	return true
}

// Find returns the branch waiting on parentHash, if any.
func (p *Pool) Find(parentHash string) (Branch, bool) {
	branch, ok := p.byMissingParent[parentHash]
	return branch, ok
}

// Remove deletes and returns the branch waiting on parentHash.
func (p *Pool) Remove(parentHash string) (Branch, bool) {
	branch, ok := p.byMissingParent[parentHash]
	if ok {
		delete(p.byMissingParent, parentHash)
	}
	return branch, ok
}

// ResolvedBy reports whether anchorHash is the missing parent some orphan
// branch was waiting on, returning that branch so the caller can promote
// it into the fork pool (or splice it straight onto the main chain).
func (p *Pool) ResolvedBy(anchorHash string) (Branch, bool) {
	return p.Remove(anchorHash)
}

// Len returns the number of distinct orphan branches held.
func (p *Pool) Len() int {
	return len(p.byMissingParent)
}
