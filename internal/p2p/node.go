// Package p2p implements peer-to-peer networking using libp2p: a single
// GossipSub topic carrying the chain-sync message taxonomy, mDNS-only LAN
// discovery with optional static seeds, and a badger-backed peer address
// book used only to reconnect on restart.
package p2p

import (
	"context"
	"fmt"
	"sync"
	"time"

	klog "github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/message"
	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
)

// rendezvousFallback is the mDNS service namespace used when no NetworkID
// is configured.
const rendezvousFallback = "klingnet-chain"

// peerConnectTimeout bounds a single dial attempt to a seed or persisted peer.
const peerConnectTimeout = 5 * time.Second

// Config holds P2P node configuration.
type Config struct {
	ListenAddr string
	Port       int
	Seeds      []string
	MaxPeers   int
	NoDiscover bool
	DB         storage.DB // peer persistence; nil disables it (used in tests)
	NetworkID  string     // isolates mDNS discovery per network
	DataDir    string     // where the node identity key is persisted
	Passphrase PassphraseFunc
}

// Node represents a P2P node built on libp2p.
type Node struct {
	host   host.Host
	pubsub *pubsub.PubSub
	config Config
	ctx    context.Context
	cancel context.CancelFunc

	topic *pubsub.Topic
	sub   *pubsub.Subscription

	messageHandler func(peer.ID, message.Message)

	mu    sync.RWMutex
	peers map[peer.ID]*Peer

	peerStore       *PeerStore
	connNotify      *connNotifier
	onPeerConnected func()
	dedup           *dedupCache
}

// New creates a new P2P node with the given config.
func New(cfg Config) *Node {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		peers:  make(map[peer.ID]*Peer),
		dedup:  newDedupCache(),
	}
	if cfg.DB != nil {
		n.peerStore = NewPeerStore(cfg.DB)
	}
	return n
}

// rendezvous returns the mDNS discovery namespace for this node.
func (n *Node) rendezvous() string {
	if n.config.NetworkID != "" {
		return "klingnet/" + n.config.NetworkID
	}
	return rendezvousFallback
}

// Start initializes the libp2p host, pubsub, and begins listening.
func (n *Node) Start() error {
	addr := fmt.Sprintf("/ip4/%s/tcp/%d", n.config.ListenAddr, n.config.Port)
	opts := []libp2p.Option{
		libp2p.ListenAddrStrings(addr),
	}

	if n.config.DataDir != "" {
		privKey, err := loadOrCreateIdentity(n.config.DataDir, n.config.Passphrase)
		if err != nil {
			return fmt.Errorf("load p2p identity: %w", err)
		}
		opts = append(opts, libp2p.Identity(privKey))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return fmt.Errorf("create libp2p host: %w", err)
	}
	n.host = h

	n.connNotify = &connNotifier{node: n}
	h.Network().Notify(n.connNotify)

	ps, err := pubsub.NewGossipSub(n.ctx, h, pubsub.WithMaxMessageSize(MaxMessageSize))
	if err != nil {
		h.Close()
		return fmt.Errorf("create pubsub: %w", err)
	}
	n.pubsub = ps

	if err := n.joinTopic(); err != nil {
		h.Close()
		return err
	}

	go n.readLoop()
	go n.loadPersistedPeers()

	if len(n.config.Seeds) > 0 {
		klog.P2P.Info().Int("seeds", len(n.config.Seeds)).Msg("connecting to seeds")
	}
	n.connectSeedsOnce()
	go n.connectSeedsLoop()

	if !n.config.NoDiscover {
		n.startMDNS()
	}

	if n.peerStore != nil {
		go n.runPersistLoop()
	}

	return nil
}

// Stop shuts down the P2P node.
func (n *Node) Stop() error {
	n.persistPeers()

	n.cancel()
	if n.sub != nil {
		n.sub.Cancel()
	}
	if n.topic != nil {
		n.topic.Close()
	}

	if n.host != nil {
		return n.host.Close()
	}
	return nil
}

// Host returns the underlying libp2p host (nil before Start).
func (n *Node) Host() host.Host {
	return n.host
}

// ID returns the peer ID of this node.
func (n *Node) ID() peer.ID {
	if n.host == nil {
		return ""
	}
	return n.host.ID()
}

// Addrs returns the full multiaddrs of this node.
func (n *Node) Addrs() []string {
	if n.host == nil {
		return nil
	}
	var addrs []string
	for _, a := range n.host.Addrs() {
		addrs = append(addrs, fmt.Sprintf("%s/p2p/%s", a, n.host.ID()))
	}
	return addrs
}

// SetPeerConnectedHandler registers a callback invoked when a new peer connects.
func (n *Node) SetPeerConnectedHandler(fn func()) {
	n.onPeerConnected = fn
}

// SetMessageHandler registers the callback invoked for every inbound
// message that passes the dedup check. The node event loop is the
// intended caller.
func (n *Node) SetMessageHandler(fn func(from peer.ID, m message.Message)) {
	n.messageHandler = fn
}

// DisconnectPeer closes all connections to a peer and removes it from the peer list.
func (n *Node) DisconnectPeer(id peer.ID) error {
	if n.host == nil {
		return fmt.Errorf("node not started")
	}
	n.removePeer(id)
	return n.host.Network().ClosePeer(id)
}

// PeerCount returns the number of connected peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// PeerList returns a snapshot of connected peers.
func (n *Node) PeerList() []*Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, p)
	}
	return out
}

func (n *Node) addPeer(id peer.ID, source string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.peers[id]; !exists {
		n.peers[id] = &Peer{
			ID:          id,
			ConnectedAt: time.Now(),
			Source:      source,
		}
	}
}

func (n *Node) removePeer(id peer.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, id)
}

func (n *Node) joinTopic() error {
	var err error
	n.topic, err = n.pubsub.Join(TopicBlocks)
	if err != nil {
		return fmt.Errorf("join %s topic: %w", TopicBlocks, err)
	}
	n.sub, err = n.topic.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicBlocks, err)
	}
	return nil
}

func (n *Node) readLoop() {
	for {
		raw, err := n.sub.Next(n.ctx)
		if err != nil {
			return // Context cancelled.
		}
		if raw.ReceivedFrom == n.host.ID() {
			continue // Skip own messages.
		}
		n.handleRaw(raw)
	}
}

func (n *Node) handleRaw(raw *pubsub.Message) {
	defer func() { recover() }()

	if n.dedup.SeenBefore(raw.Data) {
		return
	}

	n.addPeer(raw.ReceivedFrom, sourceGossip)

	m, err := message.Decode(raw.Data)
	if err != nil {
		klog.P2P.Warn().Err(err).Str("peer", raw.ReceivedFrom.String()).Msg("dropping malformed gossip message")
		return
	}

	if !n.addressedToUs(m.TransmitType) {
		return
	}

	if n.messageHandler != nil {
		n.messageHandler(raw.ReceivedFrom, m)
	}
}

// addressedToUs implements the §4.6 filter: the node only acts on messages
// addressed ToAll or ToOne(our own peer ID).
func (n *Node) addressedToUs(t message.TransmitType) bool {
	if t.Kind == message.ToAll {
		return true
	}
	return t.PeerID == n.ID().String()
}

func (n *Node) startMDNS() {
	svc := mdns.NewMdnsService(n.host, n.rendezvous(), &discoveryNotifee{node: n})
	_ = svc.Start() // mDNS failure is non-fatal.
}

// connectSeedsOnce tries to connect to each seed peer once (blocking).
// Returns true if at least one seed connected.
func (n *Node) connectSeedsOnce() bool {
	connected := false
	for _, addr := range n.config.Seeds {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			klog.P2P.Warn().Str("addr", addr).Err(err).Msg("bad seed address")
			continue
		}
		ctx, cancel := context.WithTimeout(n.ctx, 10*time.Second)
		err = n.host.Connect(ctx, *info)
		cancel()
		if err != nil {
			klog.P2P.Warn().Str("peer", info.ID.String()).Err(err).Msg("seed connect failed")
			continue
		}
		n.addPeer(info.ID, sourceSeed)
		klog.P2P.Info().Str("peer", info.ID.String()).Msg("seed connected")
		connected = true
	}
	return connected
}

// connectSeedsLoop retries seed connections every 10s while peer count is zero.
func (n *Node) connectSeedsLoop() {
	if len(n.config.Seeds) == 0 {
		return
	}
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-time.After(10 * time.Second):
			if n.PeerCount() == 0 {
				klog.P2P.Info().Int("seeds", len(n.config.Seeds)).Msg("no peers, retrying seeds")
				n.connectSeedsOnce()
			}
		}
	}
}

// --- Peer persistence ---

func (n *Node) persistPeers() {
	if n.peerStore == nil || n.host == nil {
		return
	}

	n.mu.RLock()
	snapshot := make([]peer.ID, 0, len(n.peers))
	sources := make(map[peer.ID]string)
	for id, p := range n.peers {
		snapshot = append(snapshot, id)
		sources[id] = p.Source
	}
	n.mu.RUnlock()

	now := time.Now().Unix()
	for _, id := range snapshot {
		addrs := n.host.Peerstore().Addrs(id)
		addrStrs := make([]string, len(addrs))
		for i, a := range addrs {
			addrStrs[i] = a.String()
		}
		rec := PeerRecord{
			ID:       id.String(),
			Addrs:    addrStrs,
			LastSeen: now,
			Source:   sources[id],
		}
		n.peerStore.Save(rec) // Best-effort, ignore errors.
	}
}

func (n *Node) loadPersistedPeers() {
	if n.peerStore == nil {
		return
	}

	n.peerStore.PruneStale(staleThreshold)

	records, err := n.peerStore.LoadAll()
	if err != nil {
		return
	}

	for _, rec := range records {
		id, err := peer.Decode(rec.ID)
		if err != nil || id == n.host.ID() {
			continue
		}

		info := peer.AddrInfo{ID: id}
		for _, addr := range rec.Addrs {
			ai, err := peer.AddrInfoFromString(fmt.Sprintf("%s/p2p/%s", addr, rec.ID))
			if err != nil {
				continue
			}
			info.Addrs = append(info.Addrs, ai.Addrs...)
		}
		if len(info.Addrs) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(n.ctx, peerConnectTimeout)
		n.host.Connect(ctx, info) // Best-effort reconnect.
		cancel()
	}
}

func (n *Node) runPersistLoop() {
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.persistPeers()
			n.peerStore.PruneStale(staleThreshold)
		}
	}
}
