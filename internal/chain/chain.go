// Package chain implements the ordered, tip-tracking ledger of blocks,
// the classification state machine that judges incoming blocks against
// it, and the merge/sync operations that reconcile it with forks and
// remote chains.
package chain

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

// Chain is a non-empty ordered sequence of blocks starting at genesis
// (idx 0). It owns its blocks exclusively; callers must go through Chain's
// methods to read or mutate it.
type Chain struct {
	blocks []*block.Block
}

// Genesis returns a single-element chain holding the genesis block.
func Genesis() *Chain {
	return &Chain{blocks: []*block.Block{block.Genesis()}}
}

// FromVec builds a chain from a slice of blocks, validating every
// adjacent-pair and per-block invariant. It fails with ErrChainIsEmpty,
// ErrChainIsFork, or an *InvalidSubChainErr.
func FromVec(blocks []*block.Block) (*Chain, error) {
	if len(blocks) == 0 {
		return nil, ErrChainIsEmpty
	}
	if blocks[0].Idx != 0 {
		return nil, ErrChainIsFork
	}
	if err := blocks[0].ValidateGenesis(); err != nil {
		return nil, &InvalidSubChainErr{At: 0, BlockErr: err}
	}
	for i := 0; i < len(blocks)-1; i++ {
		if err := blocks[i+1].Validate(); err != nil {
			return nil, &InvalidSubChainErr{At: i + 1, BlockErr: err}
		}
		outcome := classifyAgainst(blocks[i], blocks[i+1])
		if _, ok := outcome.(ExtendedMain); !ok {
			return nil, &InvalidSubChainErr{At: i, Classification: outcome}
		}
	}
	return &Chain{blocks: blocks}, nil
}

// Tip returns the last block of the chain.
func (c *Chain) Tip() *block.Block {
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// Blocks returns the chain's blocks in order. The caller must not mutate
// the returned slice's elements.
func (c *Chain) Blocks() []*block.Block {
	return c.blocks
}

// GetByIdx returns the block at the given position, or nil if out of range.
func (c *Chain) GetByIdx(idx uint64) *block.Block {
	if idx >= uint64(len(c.blocks)) {
		return nil
	}
	return c.blocks[idx]
}

// GetByHash returns the block with the given hash, or nil if not present.
func (c *Chain) GetByHash(hash string) *block.Block {
	for _, b := range c.blocks {
		if b.Hash == hash {
			return b
		}
	}
	return nil
}

// MineThenPush mines a new block on top of the tip carrying data and
// appends it. It is infallible on a valid chain: the mined block always
// extends the current tip by construction.
func (c *Chain) MineThenPush(data string) *block.Block {
	b := block.Mine(c.Tip(), data)
	c.blocks = append(c.blocks, b)
	return b
}

// Append adds b to the chain. b must classify as ExtendedMain against the
// current tip; any other outcome is rejected without mutating the chain.
func (c *Chain) Append(b *block.Block) error {
	if _, ok := classifyAgainst(c.Tip(), b).(ExtendedMain); !ok {
		return fmt.Errorf("chain: block %s does not extend tip %s", b.Hash, c.Tip().Hash)
	}
	c.blocks = append(c.blocks, b)
	return nil
}

// String renders the chain as a compact, human-readable listing, one
// block per line.
func (c *Chain) String() string {
	s := ""
	for _, b := range c.blocks {
		s += fmt.Sprintf("#%d %s (data=%q prev=%s)\n", b.Idx, b.Hash, b.Data, b.PrevHash)
	}
	return s
}
