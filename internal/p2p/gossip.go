package p2p

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/internal/message"
)

// Broadcast publishes a message on the blocks topic. TransmitType addressing
// (ToAll vs ToOne) is carried inside the payload itself; GossipSub delivers
// to every subscriber and the node filters on receipt per §4.6.
func (n *Node) Broadcast(m message.Message) error {
	if n.topic == nil {
		return fmt.Errorf("p2p node not started")
	}

	data, err := message.Encode(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	return n.topic.Publish(n.ctx, data)
}
