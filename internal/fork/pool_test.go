package fork

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

func buildFork(t *testing.T, anchor *block.Block, data ...string) Fork {
	t.Helper()
	f := make(Fork, 0, len(data))
	prev := anchor
	for _, d := range data {
		b := block.Mine(prev, d)
		f = append(f, b)
		prev = b
	}
	return f
}

func TestInsertAndFind(t *testing.T) {
	anchor := block.Genesis()
	p := NewPool()
	f := buildFork(t, anchor, "a", "b")

	id := p.Insert(f)
	if id.ForkHash != anchor.Hash {
		t.Fatalf("id.ForkHash = %q, want %q", id.ForkHash, anchor.Hash)
	}
	if id.EndHash != f[len(f)-1].Hash {
		t.Fatalf("id.EndHash = %q, want %q", id.EndHash, f[len(f)-1].Hash)
	}

	_, _, found, ok := p.Find(func(b *block.Block) bool { return b.Data == "b" })
	if !ok || found.Data != "b" {
		t.Fatalf("Find(data==b) = %v, %v, want b block", found, ok)
	}
}

func TestRemove(t *testing.T) {
	anchor := block.Genesis()
	p := NewPool()
	f := buildFork(t, anchor, "a")
	id := p.Insert(f)

	got, ok := p.Remove(id.ForkHash, id.EndHash)
	if !ok || len(got) != 1 {
		t.Fatalf("Remove = %v, %v, want 1-block fork", got, ok)
	}
	if p.Len() != 0 {
		t.Fatalf("Len() after remove = %d, want 0", p.Len())
	}
	if _, ok := p.Remove(id.ForkHash, id.EndHash); ok {
		t.Fatal("Remove twice should report not found the second time")
	}
}

func TestLongest(t *testing.T) {
	anchor := block.Genesis()
	p := NewPool()
	p.Insert(buildFork(t, anchor, "a"))
	longFork := buildFork(t, anchor, "x", "y", "z")
	p.Insert(longFork)

	best, _, ok := p.Longest()
	if !ok || len(best) != 3 {
		t.Fatalf("Longest() = %v, %v, want 3-block fork", best, ok)
	}
}

func TestExtend(t *testing.T) {
	anchor := block.Genesis()
	p := NewPool()
	f := buildFork(t, anchor, "a")
	id := p.Insert(f)

	next := block.Mine(f[len(f)-1], "b")
	newID, ok := p.Extend(id.ForkHash, id.EndHash, next)
	if !ok {
		t.Fatal("Extend reported not found")
	}
	if newID.EndHash != next.Hash {
		t.Fatalf("newID.EndHash = %q, want %q", newID.EndHash, next.Hash)
	}
	if _, _, _, stillThere := p.Find(func(b *block.Block) bool { return b.Hash == f[len(f)-1].Hash }); !stillThere {
		t.Fatal("extended fork should still contain the original block")
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (old endpoint replaced, not duplicated)", p.Len())
	}
}

func TestNest(t *testing.T) {
	anchor := block.Genesis()
	p := NewPool()
	f := buildFork(t, anchor, "a", "b", "c")
	id := p.Insert(f)

	// branch off the first block (data == "a") instead of the tip.
	sibling := block.Mine(f[0], "a-sibling")
	newID, ok := p.Nest(id.ForkHash, id.EndHash, sibling)
	if !ok {
		t.Fatal("Nest reported not found")
	}
	if newID.EndHash != sibling.Hash {
		t.Fatalf("newID.EndHash = %q, want %q", newID.EndHash, sibling.Hash)
	}
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (original fork kept, new branch added)", p.Len())
	}
	if _, stillThere := p.Remove(id.ForkHash, id.EndHash); !stillThere {
		t.Fatal("original fork should be untouched by Nest")
	}
}

func TestRetainAnchors(t *testing.T) {
	a1 := block.Genesis()
	a2 := block.Mine(a1, "main-1")
	p := NewPool()
	p.Insert(buildFork(t, a1, "stale-branch"))
	p.Insert(buildFork(t, a2, "live-branch"))

	p.RetainAnchors(map[string]bool{a2.Hash: true})
	if p.Len() != 1 {
		t.Fatalf("Len() after RetainAnchors = %d, want 1", p.Len())
	}
	if _, _, _, ok := p.Find(func(b *block.Block) bool { return b.Data == "live-branch" }); !ok {
		t.Fatal("fork anchored on a2 should survive RetainAnchors")
	}
}
