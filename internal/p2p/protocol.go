package p2p

// TopicBlocks is the single GossipSub topic all three message kinds travel
// on: chain requests, chain responses, and new-block announcements.
const TopicBlocks = "blocks"

// MaxMessageSize bounds a single GossipSub message. A ChainResponse carries
// the sender's full chain, so the ceiling has to accommodate a long-running
// node's history, not just one block.
const MaxMessageSize = 16 * 1024 * 1024
