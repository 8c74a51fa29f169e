package chain

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

func TestGenesis_Uniqueness(t *testing.T) {
	a := Genesis()
	b := Genesis()
	if a.Tip().Idx != 0 || b.Tip().Idx != 0 {
		t.Fatal("genesis chain tip idx != 0")
	}
	if a.Tip().Data != "genesis" {
		t.Fatalf("genesis data = %q, want %q", a.Tip().Data, "genesis")
	}
	if a.Tip().PrevHash != block.ZeroHash {
		t.Fatalf("genesis prev_hash = %q, want 64 zero hex chars", a.Tip().PrevHash)
	}
	if a.Tip().Hash != b.Tip().Hash {
		t.Fatalf("two genesis chains hash differently: %q vs %q", a.Tip().Hash, b.Tip().Hash)
	}
}

func TestMineAndValidate(t *testing.T) {
	c := Genesis()
	c.MineThenPush("hello")
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	tip := c.Tip()
	if tip.Idx != 1 {
		t.Fatalf("tip.Idx = %d, want 1", tip.Idx)
	}
	if tip.PrevHash != c.GetByIdx(0).Hash {
		t.Fatalf("tip.PrevHash = %q, want genesis hash %q", tip.PrevHash, c.GetByIdx(0).Hash)
	}
	if _, err := FromVec(c.Blocks()); err != nil {
		t.Fatalf("FromVec(mined chain) = %v, want nil", err)
	}
}

func chainOfLen(t *testing.T, n int) *Chain {
	t.Helper()
	c := Genesis()
	for i := 1; i < n; i++ {
		c.MineThenPush("x")
	}
	return c
}

func TestClassify_RejectOldBlock(t *testing.T) {
	c := chainOfLen(t, 5) // idx 0..4
	old := c.GetByIdx(3)
	outcome := c.Classify(old)
	too, ok := outcome.(BlockTooOld)
	if !ok {
		t.Fatalf("Classify(old block) = %T, want BlockTooOld", outcome)
	}
	if too.BlockIdx != 3 || too.CurrentIdx != 4 {
		t.Fatalf("BlockTooOld = %+v, want {3 4}", too)
	}
}

func TestClassify_DuplicateBlock(t *testing.T) {
	c := chainOfLen(t, 3)
	outcome := c.Classify(c.Tip())
	if _, ok := outcome.(DuplicateBlock); !ok {
		t.Fatalf("Classify(tip) = %T, want DuplicateBlock", outcome)
	}
}

func TestClassify_ExtendedMain(t *testing.T) {
	c := chainOfLen(t, 3)
	next := block.Mine(c.Tip(), "next")
	outcome := c.Classify(next)
	if _, ok := outcome.(ExtendedMain); !ok {
		t.Fatalf("Classify(next) = %T, want ExtendedMain", outcome)
	}
}

func TestClassify_BlockTooNew(t *testing.T) {
	c := chainOfLen(t, 1)
	stray := &block.Block{Idx: 3, PrevHash: "deadbeef"}
	outcome := c.Classify(stray)
	too, ok := outcome.(BlockTooNew)
	if !ok {
		t.Fatalf("Classify(stray) = %T, want BlockTooNew", outcome)
	}
	if too.BlockIdx != 3 || too.CurrentIdx != 0 {
		t.Fatalf("BlockTooNew = %+v, want {3 0}", too)
	}
}

func TestClassify_CompetingBlock(t *testing.T) {
	c := chainOfLen(t, 3)
	parent := c.GetByIdx(c.Tip().Idx - 1)
	competitor := block.Mine(parent, "other")
	outcome := c.Classify(competitor)
	if _, ok := outcome.(CompetingBlock); !ok {
		t.Fatalf("Classify(competitor) = %T, want CompetingBlock", outcome)
	}
}

func TestClassify_NextBlockInFork(t *testing.T) {
	c := chainOfLen(t, 3)
	parent := c.GetByIdx(c.Tip().Idx - 1)
	forkTip := block.Mine(parent, "fork-tip")
	forkNext := block.Mine(forkTip, "fork-next")
	outcome := c.Classify(forkNext)
	if _, ok := outcome.(NextBlockInFork); !ok {
		t.Fatalf("Classify(forkNext) = %T, want NextBlockInFork", outcome)
	}
}

func TestClassify_CompetingBlockInFork(t *testing.T) {
	c := chainOfLen(t, 5) // idx 0..4, tip idx 4
	grandparent := c.GetByIdx(c.Tip().Idx - 2)
	f1 := block.Mine(grandparent, "f1")  // idx 3, diverges from main
	f2 := block.Mine(f1, "f2")           // idx 4, same idx as tip
	outcome := c.Classify(f2)
	if _, ok := outcome.(CompetingBlockInFork); !ok {
		t.Fatalf("Classify(f2) = %T, want CompetingBlockInFork", outcome)
	}
}

func TestTryMergeFork_EmptyFork(t *testing.T) {
	c := chainOfLen(t, 3)
	if err := c.TryMergeFork(nil); err != ErrForkIsEmpty {
		t.Fatalf("TryMergeFork(nil) = %v, want ErrForkIsEmpty", err)
	}
}

func TestTryMergeFork_StartsAtGenesis(t *testing.T) {
	c := chainOfLen(t, 3)
	if err := c.TryMergeFork([]*block.Block{block.Genesis()}); err != ErrForkStartsAtGenesis {
		t.Fatalf("TryMergeFork(genesis) = %v, want ErrForkStartsAtGenesis", err)
	}
}

func TestTryMergeFork_Incompatible(t *testing.T) {
	c := chainOfLen(t, 3)
	stray := block.Mine(&block.Block{Idx: 0, Hash: "not-on-chain"}, "x")
	if err := c.TryMergeFork([]*block.Block{stray}); err != ErrForkIncompatible {
		t.Fatalf("TryMergeFork(stray) = %v, want ErrForkIncompatible", err)
	}
}

func TestTryMergeFork_InvalidSubChain(t *testing.T) {
	c := chainOfLen(t, 3)
	anchor := c.GetByIdx(1)
	f1 := block.Mine(anchor, "f1")
	f2 := block.Mine(f1, "f2")
	f2.Idx = 99 // corrupt adjacency
	err := c.TryMergeFork([]*block.Block{f1, f2})
	if _, ok := err.(*InvalidSubChainErr); !ok {
		t.Fatalf("TryMergeFork(corrupt) = %T (%v), want *InvalidSubChainErr", err, err)
	}
}

func TestTryMergeFork_Success(t *testing.T) {
	c := chainOfLen(t, 5) // A0..A4
	anchor := c.GetByIdx(2)
	f3 := block.Mine(anchor, "f3")
	f4 := block.Mine(f3, "f4")
	f5 := block.Mine(f4, "f5")

	if err := c.TryMergeFork([]*block.Block{f3, f4, f5}); err != nil {
		t.Fatalf("TryMergeFork(valid fork) = %v, want nil", err)
	}
	if c.Len() != 6 {
		t.Fatalf("Len() after merge = %d, want 6", c.Len())
	}
	if c.Tip().Hash != f5.Hash {
		t.Fatalf("tip after merge = %q, want %q", c.Tip().Hash, f5.Hash)
	}
	if _, err := FromVec(c.Blocks()); err != nil {
		t.Fatalf("FromVec(merged chain) = %v, want nil", err)
	}
}

func TestSyncWith_LongerRemoteWins(t *testing.T) {
	local := chainOfLen(t, 3)
	remote := chainOfLen(t, 5)
	if replaced := local.SyncWith(remote); !replaced {
		t.Fatal("SyncWith(longer remote) = false, want true")
	}
	if local.Len() != 5 {
		t.Fatalf("local.Len() after sync = %d, want 5", local.Len())
	}
}

func TestSyncWith_TieKeepsLocal(t *testing.T) {
	local := chainOfLen(t, 3)
	remote := chainOfLen(t, 3)
	localTip := local.Tip().Hash
	if replaced := local.SyncWith(remote); replaced {
		t.Fatal("SyncWith(equal length remote) = true, want false")
	}
	if local.Tip().Hash != localTip {
		t.Fatal("local chain mutated on tie")
	}
}

func TestSyncWith_NilRemoteKeepsLocal(t *testing.T) {
	local := chainOfLen(t, 3)
	if replaced := local.SyncWith(nil); replaced {
		t.Fatal("SyncWith(nil) = true, want false")
	}
}

func TestFromVec_Empty(t *testing.T) {
	if _, err := FromVec(nil); err != ErrChainIsEmpty {
		t.Fatalf("FromVec(nil) = %v, want ErrChainIsEmpty", err)
	}
}

func TestFromVec_NotGenesisRooted(t *testing.T) {
	b := block.Mine(block.Genesis(), "x")
	if _, err := FromVec([]*block.Block{b}); err != ErrChainIsFork {
		t.Fatalf("FromVec(non-genesis root) = %v, want ErrChainIsFork", err)
	}
}
