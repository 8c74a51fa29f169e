package chain

import "github.com/Klingon-tech/klingnet-chain/pkg/block"

// Classification is the result of comparing an incoming block against the
// local tip. It is intentionally exhaustive: every relative position of
// (B.idx, T.idx) and every prev_hash comparison maps to exactly one
// concrete type, so callers can switch on concrete type instead of
// matching ad-hoc strings.
type Classification interface {
	classification()
}

// ExtendedMain means the block extends the tip directly and should be
// appended to the main chain.
type ExtendedMain struct{}

func (ExtendedMain) classification() {}

// BlockTooOld means the block's position has already been passed by the
// local chain.
type BlockTooOld struct {
	BlockIdx   uint64
	CurrentIdx uint64
}

func (BlockTooOld) classification() {}

// DuplicateBlock means the block is byte-identical to the current tip.
type DuplicateBlock struct{}

func (DuplicateBlock) classification() {}

// CompetingBlock means the block shares the tip's position but diverges
// at the tip's parent — a fork candidate one block deep.
type CompetingBlock struct{}

func (CompetingBlock) classification() {}

// CompetingBlockInFork means the block shares the tip's position but
// diverges deeper than the tip's immediate parent.
type CompetingBlockInFork struct {
	BlockParentHash   string
	CurrentParentHash string
}

func (CompetingBlockInFork) classification() {}

// NextBlockInFork means the block would extend the chain by one position
// but its parent is not the current tip — the fork is at least one block
// behind.
type NextBlockInFork struct{}

func (NextBlockInFork) classification() {}

// BlockTooNew means the block is more than one position ahead of the tip;
// reconciliation (a chain request, or orphan buffering) is required.
type BlockTooNew struct {
	BlockIdx   uint64
	CurrentIdx uint64
}

func (BlockTooNew) classification() {}

// Classify compares b against the chain's tip and returns the outcome in
// the table from the block-classification state machine. b is assumed to
// have already passed Validate(); classification does not re-check
// proof-of-work or hash consistency.
func (c *Chain) Classify(b *block.Block) Classification {
	return classifyAgainst(c.Tip(), b)
}

// classifyAgainst implements the classification table for an arbitrary
// (tip, candidate) pair. It is reused by Classify against the main chain
// tip, and internally wherever a candidate adjacent-pair needs the same
// judgment (sub-chain validation, fork extension).
func classifyAgainst(tip, b *block.Block) Classification {
	switch {
	case b.Idx < tip.Idx:
		return BlockTooOld{BlockIdx: b.Idx, CurrentIdx: tip.Idx}
	case b.Idx == tip.Idx && b.Hash == tip.Hash:
		return DuplicateBlock{}
	case b.Idx == tip.Idx && b.PrevHash == tip.PrevHash:
		return CompetingBlock{}
	case b.Idx == tip.Idx:
		return CompetingBlockInFork{BlockParentHash: b.PrevHash, CurrentParentHash: tip.PrevHash}
	case b.Idx == tip.Idx+1 && b.PrevHash == tip.Hash:
		return ExtendedMain{}
	case b.Idx == tip.Idx+1:
		return NextBlockInFork{}
	default:
		return BlockTooNew{BlockIdx: b.Idx, CurrentIdx: tip.Idx}
	}
}
