// Package node implements the replication event loop: a single-threaded
// cooperative select over local commands and inbound gossip messages,
// driving the chain, fork pool, and orphan pool described in SPEC_FULL.md.
package node

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/internal/fork"
	klog "github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/message"
	"github.com/Klingon-tech/klingnet-chain/internal/orphan"
	"github.com/Klingon-tech/klingnet-chain/internal/p2p"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
)

// inboundMsg pairs a decoded gossip message with the peer it arrived
// from, queued from the transport's own goroutine to the node's single
// consumer loop.
type inboundMsg struct {
	from peer.ID
	msg  message.Message
}

// Node owns the chain, fork pool, and orphan pool, and is the sole
// writer of all three: every mutation happens on the goroutine running
// Run, never from the transport's callback directly.
type Node struct {
	transport *p2p.Node
	chainFile string
	logger    zerolog.Logger

	chain   *chain.Chain
	forks   *fork.Pool
	orphans *orphan.Pool

	inbound chan inboundMsg
}

// New builds a Node around an already-constructed transport, loading the
// persisted chain from chainFile (falling back to a fresh genesis chain
// if absent or unparsable).
func New(transport *p2p.Node, chainFile string) *Node {
	n := &Node{
		transport: transport,
		chainFile: chainFile,
		logger:    klog.Node,
		chain:     loadChain(chainFile),
		forks:     fork.NewPool(),
		orphans:   orphan.NewPool(),
		inbound:   make(chan inboundMsg, 64),
	}
	transport.SetMessageHandler(n.enqueueInbound)
	return n
}

// enqueueInbound is the transport's message callback. It only hands the
// message off to the node's single consumer; it never touches chain
// state itself.
func (n *Node) enqueueInbound(from peer.ID, m message.Message) {
	select {
	case n.inbound <- inboundMsg{from: from, msg: m}:
	default:
		n.logger.Warn().Str("kind", string(m.Kind)).Msg("inbound queue full, dropping message")
	}
}

// Run drives the event loop until ctx is cancelled. It is the only
// goroutine that reads or mutates n.chain, n.forks, and n.orphans.
func (n *Node) Run(ctx context.Context) error {
	printCommands()
	n.logger.Info().Str("peer_id", n.transport.ID().String()).Msg("node loop started")

	lines := readStdinLines(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			n.handleCommand(line)
		case im := <-n.inbound:
			n.handleInbound(im.from, im.msg)
		}
	}
}

// readStdinLines streams standard input one line at a time onto a
// channel, so Run can select over it alongside inbound gossip. It closes
// the channel when stdin is exhausted or ctx is cancelled.
func readStdinLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func printCommands() {
	fmt.Println(`Available commands:
  fresh            rebuild the chain from a fresh genesis block
  mk <data>        mine and append a block carrying <data>
  ls blocks        print the main chain
  ls peers         print connected peers
  req all          request every peer's chain
  req <peer-id>    request one peer's chain`)
}

// --- Local commands ---

func (n *Node) handleCommand(line string) {
	line = strings.TrimSpace(line)
	switch {
	case line == "fresh":
		n.handleFresh()
	case strings.HasPrefix(line, "mk"):
		n.handleMine(strings.TrimSpace(strings.TrimPrefix(line, "mk")))
	case line == "ls blocks":
		fmt.Print(n.chain.String())
	case line == "ls peers":
		n.handleListPeers()
	case strings.HasPrefix(line, "req"):
		n.handleRequest(strings.TrimSpace(strings.TrimPrefix(line, "req")))
	default:
		fmt.Printf("Unknown command: %q\n", line)
		printCommands()
	}
}

func (n *Node) handleFresh() {
	n.chain = chain.Genesis()
	n.forks.Clear()
	n.orphans = orphan.NewPool()
	n.persist()
	fmt.Println("Wrote fresh chain:")
	fmt.Print(n.chain.String())
}

func (n *Node) handleMine(data string) {
	if data == "" {
		fmt.Println("Command error: `mk` missing an argument [data]")
		return
	}
	b := n.chain.MineThenPush(data)
	n.persist()
	fmt.Printf("Mined and wrote new block: #%d %s\n", b.Idx, b.Hash)

	if err := n.transport.Broadcast(message.NewBlockMsg(b)); err != nil {
		n.logger.Warn().Err(err).Msg("broadcasting new block")
	}
}

func (n *Node) handleListPeers() {
	peers := n.transport.PeerList()
	fmt.Printf("Connected peers (%d):\n", len(peers))
	for _, p := range peers {
		fmt.Printf("  %s (%s)\n", p.ID, p.Source)
	}
}

func (n *Node) handleRequest(target string) {
	if target == "" {
		fmt.Println("Command error: `req` missing an argument, specify \"all\" or <peer-id>")
		return
	}
	if target == "all" {
		fmt.Println("Broadcasting chain request to all peers")
		n.requestChainFromAll()
		return
	}
	fmt.Printf("Requesting chain from %s\n", target)
	n.requestChain(message.TransmitType{Kind: message.ToOne, PeerID: target})
}

func (n *Node) requestChainFromAll() {
	n.requestChain(message.TransmitType{Kind: message.ToAll})
}

func (n *Node) requestChain(transmit message.TransmitType) {
	req := message.NewChainRequest(transmit, n.transport.ID().String())
	if err := n.transport.Broadcast(req); err != nil {
		n.logger.Warn().Err(err).Msg("broadcasting chain request")
	}
}

// --- Inbound gossip ---

func (n *Node) handleInbound(from peer.ID, m message.Message) {
	switch m.Kind {
	case message.KindChainRequest:
		n.handleChainRequest(m)
	case message.KindChainResponse:
		n.handleChainResponse(m)
	case message.KindNewBlock:
		n.handleNewBlock(m)
	default:
		n.logger.Warn().Str("peer", from.String()).Str("kind", string(m.Kind)).Msg("ignoring message of unknown kind")
	}
}

func (n *Node) handleChainRequest(m message.Message) {
	if m.SenderPeerID == "" {
		return
	}
	resp := message.NewChainResponse(message.TransmitType{Kind: message.ToOne, PeerID: m.SenderPeerID}, n.chain)
	if err := n.transport.Broadcast(resp); err != nil {
		n.logger.Warn().Err(err).Msg("replying to chain request")
	}
}

func (n *Node) handleChainResponse(m message.Message) {
	remote, err := chain.FromVec(m.Chain)
	if err != nil {
		n.logger.Warn().Err(err).Msg("received an invalid remote chain, ignoring")
		return
	}
	if n.chain.SyncWith(remote) {
		n.logger.Info().Uint64("height", remote.Tip().Idx).Msg("adopted longer remote chain")
		n.persist()
		n.reconcileAfterChainChange()
	}
}

func (n *Node) handleNewBlock(m message.Message) {
	b := m.Block
	if b == nil {
		return
	}
	if err := b.Validate(); err != nil {
		n.logger.Warn().Err(err).Uint64("idx", b.Idx).Msg("dropping invalid block")
		return
	}

	switch outcome := n.chain.Classify(b).(type) {
	case chain.ExtendedMain:
		if err := n.chain.Append(b); err != nil {
			n.logger.Error().Err(err).Msg("classify said ExtendedMain but append failed")
			return
		}
		n.persist()
		n.reconcileAfterChainChange()
	case chain.DuplicateBlock:
		// Already have it; nothing to do.
	case chain.BlockTooOld:
		n.logger.Debug().Uint64("block_idx", outcome.BlockIdx).Uint64("current_idx", outcome.CurrentIdx).Msg("dropping stale block")
	case chain.CompetingBlock, chain.CompetingBlockInFork, chain.NextBlockInFork:
		if n.routeBlock(b) {
			n.requestChainFromAll()
		}
		n.tryMergeLongestFork()
	case chain.BlockTooNew:
		n.routeBlock(b)
		n.tryMergeLongestFork()
		n.requestChainFromAll()
	}
}

// routeBlock implements the fork/orphan routing algorithm in §4.2.1:
// extend a fork ending where b begins, else nest b onto a fork containing
// b's parent, else anchor a new single-block fork on the main chain, else
// fall back to the orphan pool. Reports whether b ended up an orphan.
func (n *Node) routeBlock(b *block.Block) (orphaned bool) {
	if id, _, ok := n.forks.FindByEndHash(b.PrevHash); ok {
		n.forks.Extend(id.ForkHash, id.EndHash, b)
		return false
	}
	if id, _, _, ok := n.forks.Find(func(bb *block.Block) bool { return bb.Hash == b.PrevHash }); ok {
		n.forks.Nest(id.ForkHash, id.EndHash, b)
		return false
	}
	if anchor := n.chain.GetByHash(b.PrevHash); anchor != nil {
		n.forks.Insert(fork.Fork{b})
		return false
	}
	if !n.orphans.ExtendOrphan(b) {
		n.orphans.Insert(b)
	}
	return true
}

// tryMergeLongestFork checks whether any fork's tip now sits at a higher
// chain index than the main chain's tip and, if so, splices it in. A
// fork's EndIdx is the absolute chain position its last block would
// occupy, so comparing it to the tip's index is correct regardless of
// how deep the fork's anchor sits.
func (n *Node) tryMergeLongestFork() {
	longest, id, ok := n.forks.Longest()
	if !ok || id.EndIdx <= n.chain.Tip().Idx {
		return
	}
	if err := n.chain.TryMergeFork(longest); err != nil {
		n.logger.Warn().Err(err).Msg("longest fork did not merge cleanly")
		return
	}
	n.forks.Remove(id.ForkHash, id.EndHash)
	n.logger.Info().Uint64("height", n.chain.Tip().Idx).Msg("merged fork, chain reorganized")
	n.persist()
	n.reconcileAfterChainChange()
}

// reconcileAfterChainChange runs whenever the main chain is replaced or
// extended by something other than a local mk: forks anchored to blocks
// no longer on the main chain are dropped, and any orphan whose missing
// parent is now a main-chain hash is promoted into the fork pool.
func (n *Node) reconcileAfterChainChange() {
	anchors := make(map[string]bool, n.chain.Len())
	for _, b := range n.chain.Blocks() {
		anchors[b.Hash] = true
	}
	n.forks.RetainAnchors(anchors)

	for _, b := range n.chain.Blocks() {
		if branch, ok := n.orphans.ResolvedBy(b.Hash); ok {
			n.forks.Insert(fork.Fork(branch))
		}
	}

	n.tryMergeLongestFork()
}

func (n *Node) persist() {
	if err := saveChain(n.chainFile, n.chain); err != nil {
		n.logger.Error().Err(err).Msg("persisting chain")
	}
}
