package p2p

import (
	"sync"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// dedupRingSize is how many recent message digests the node remembers.
// GossipSub delivers the same message from multiple mesh peers; this ring
// is sized to comfortably outlast that redelivery window without growing
// unbounded.
const dedupRingSize = 512

// dedupCache tracks recently-seen gossip payload digests so the node
// doesn't reclassify the same chain request/response/block twice when
// GossipSub's mesh redelivers it.
type dedupCache struct {
	mu    sync.Mutex
	seen  map[crypto.Digest]struct{}
	order []crypto.Digest
	next  int
}

func newDedupCache() *dedupCache {
	return &dedupCache{
		seen:  make(map[crypto.Digest]struct{}, dedupRingSize),
		order: make([]crypto.Digest, 0, dedupRingSize),
	}
}

// SeenBefore reports whether data's digest was already recorded, and
// records it if not. A true result means the caller should drop the
// message without processing it.
func (d *dedupCache) SeenBefore(data []byte) bool {
	digest := crypto.Hash(data)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[digest]; ok {
		return true
	}

	if len(d.order) < dedupRingSize {
		d.order = append(d.order, digest)
	} else {
		delete(d.seen, d.order[d.next])
		d.order[d.next] = digest
		d.next = (d.next + 1) % dedupRingSize
	}
	d.seen[digest] = struct{}{}
	return false
}
