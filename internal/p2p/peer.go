package p2p

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Peer represents a connected peer.
type Peer struct {
	ID          peer.ID
	ConnectedAt time.Time
	Source      string // "mdns", "seed", "gossip"
}

// Peer discovery/connect sources. There is no dht source: this node only
// discovers peers via mDNS, static seeds, or gossip introductions from
// peers it already knows.
const (
	sourceMDNS   = "mdns"
	sourceSeed   = "seed"
	sourceGossip = "gossip"
)
