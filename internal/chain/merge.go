package chain

import "github.com/Klingon-tech/klingnet-chain/pkg/block"

// TryMergeFork splices fork onto the chain: it validates fork as a
// self-consistent sub-chain, locates the main-chain block whose hash
// equals fork's first block's prev_hash, truncates the chain to that
// point, and appends fork in full.
//
// TryMergeFork is policy-free: it does not check whether the resulting
// chain is longer than the original. Callers decide whether to merge
// based on length before calling this.
func (c *Chain) TryMergeFork(fork []*block.Block) error {
	if len(fork) == 0 {
		return ErrForkIsEmpty
	}
	if fork[0].Idx == 0 {
		return ErrForkStartsAtGenesis
	}
	if err := fork[0].Validate(); err != nil {
		return &InvalidSubChainErr{At: 0, BlockErr: err}
	}
	for i := 0; i < len(fork)-1; i++ {
		if err := fork[i+1].Validate(); err != nil {
			return &InvalidSubChainErr{At: i + 1, BlockErr: err}
		}
		outcome := classifyAgainst(fork[i], fork[i+1])
		if _, ok := outcome.(ExtendedMain); !ok {
			return &InvalidSubChainErr{At: i, Classification: outcome}
		}
	}

	anchor := c.GetByHash(fork[0].PrevHash)
	if anchor == nil {
		return ErrForkIncompatible
	}

	truncated := make([]*block.Block, anchor.Idx+1)
	copy(truncated, c.blocks[:anchor.Idx+1])
	c.blocks = append(truncated, fork...)
	return nil
}
