package chain

import "fmt"

// ErrChainIsEmpty means FromVec was given an empty slice of blocks.
var ErrChainIsEmpty = fmt.Errorf("chain is empty")

// ErrChainIsFork means the first block of a supposed chain does not have
// idx == 0, so it cannot be a chain rooted at genesis.
var ErrChainIsFork = fmt.Errorf("chain does not start at genesis (idx != 0)")

// InvalidSubChainErr reports why a candidate sequence of blocks failed
// self-consistency validation: either a block itself is invalid
// (BlockErr set), or two adjacent blocks don't extend cleanly
// (Classification set to the non-ExtendedMain outcome observed).
// Used by both chain and fork self-consistency checks.
type InvalidSubChainErr struct {
	At             int // index of the failing block or adjacent pair
	BlockErr       error
	Classification Classification
}

func (e *InvalidSubChainErr) Error() string {
	if e.BlockErr != nil {
		return fmt.Sprintf("invalid sub-chain at position %d: %v", e.At, e.BlockErr)
	}
	return fmt.Sprintf("invalid sub-chain at position %d: %T", e.At, e.Classification)
}

func (e *InvalidSubChainErr) Unwrap() error {
	return e.BlockErr
}

// Fork/merge errors.

// ErrForkIsEmpty means try_merge_fork was given an empty fork.
var ErrForkIsEmpty = fmt.Errorf("fork is empty")

// ErrForkStartsAtGenesis means a fork's first block has idx == 0, which
// cannot be spliced onto anything.
var ErrForkStartsAtGenesis = fmt.Errorf("fork starts at genesis (idx == 0)")

// ErrForkIncompatible means no block on the main chain has a hash equal to
// the fork's first block's prev_hash, so there is no splice point.
var ErrForkIncompatible = fmt.Errorf("fork is not anchored to any block on the main chain")
