// Package message defines the gossip envelope exchanged between nodes:
// chain sync requests/responses and new-block announcements.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

// TransmitKind distinguishes a broadcast-to-everyone message from one
// addressed to a single peer.
type TransmitKind uint8

const (
	ToAll TransmitKind = iota
	ToOne
)

// TransmitType carries the addressing decision alongside a gossip
// message. PeerID is only meaningful when Kind == ToOne.
type TransmitType struct {
	Kind   TransmitKind `json:"kind"`
	PeerID string       `json:"peer_id,omitempty"`
}

func (t TransmitType) String() string {
	if t.Kind == ToOne {
		return fmt.Sprintf("ToOne(%s)", t.PeerID)
	}
	return "ToAll"
}

// Kind identifies which variant of Message is populated.
type Kind string

const (
	KindChainRequest  Kind = "chain_request"
	KindChainResponse Kind = "chain_response"
	KindNewBlock      Kind = "new_block"
)

// Message is the tagged union of everything a node can put on the wire.
// Exactly one of the payload fields is populated, selected by Kind.
type Message struct {
	Kind         Kind         `json:"kind"`
	TransmitType TransmitType `json:"transmit_type"`

	SenderPeerID string         `json:"sender_peer_id,omitempty"` // ChainRequest
	Chain        []*block.Block `json:"chain,omitempty"`          // ChainResponse
	Block        *block.Block   `json:"block,omitempty"`          // NewBlock
}

// NewChainRequest builds a request for a peer's (or every peer's) chain.
func NewChainRequest(transmit TransmitType, senderPeerID string) Message {
	return Message{Kind: KindChainRequest, TransmitType: transmit, SenderPeerID: senderPeerID}
}

// NewChainResponse builds a reply carrying the full local chain.
func NewChainResponse(transmit TransmitType, c *chain.Chain) Message {
	return Message{Kind: KindChainResponse, TransmitType: transmit, Chain: c.Blocks()}
}

// NewBlockMsg announces a freshly mined or accepted block. Always ToAll.
func NewBlockMsg(b *block.Block) Message {
	return Message{Kind: KindNewBlock, TransmitType: TransmitType{Kind: ToAll}, Block: b}
}

func (m Message) String() string {
	switch m.Kind {
	case KindChainRequest:
		return fmt.Sprintf("ChainRequest{transmit: %s, sender: %s}", m.TransmitType, m.SenderPeerID)
	case KindChainResponse:
		return fmt.Sprintf("ChainResponse{transmit: %s, blocks: %d}", m.TransmitType, len(m.Chain))
	case KindNewBlock:
		if m.Block == nil {
			return "NewBlock{<nil>}"
		}
		return fmt.Sprintf("NewBlock{idx: %d, hash: %s}", m.Block.Idx, m.Block.Hash)
	default:
		return fmt.Sprintf("Message{kind: %q}", m.Kind)
	}
}

// Encode serializes m for transmission over a GossipSub topic.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a gossip payload back into a Message, rejecting unknown
// or missing Kind tags so a malformed or malicious peer can't produce a
// Message with every payload field nil.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("message: decode: %w", err)
	}
	switch m.Kind {
	case KindChainRequest, KindChainResponse, KindNewBlock:
		return m, nil
	default:
		return Message{}, fmt.Errorf("message: unknown kind %q", m.Kind)
	}
}
