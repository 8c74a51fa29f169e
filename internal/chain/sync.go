package chain

// SyncWith implements longest-valid-chain selection against a remote
// chain. Both chain values are assumed to have already passed FromVec (so
// "valid" here means non-nil). Returns true if the local chain was
// replaced by remote.
//
// Policy: the strictly longer chain wins; ties keep local. If remote is
// nil, local is kept. If local is somehow nil, this is a programming
// error — the node always owns a valid chain — and SyncWith panics rather
// than silently producing an inconsistent state.
func (c *Chain) SyncWith(remote *Chain) bool {
	if c == nil {
		panic("chain: SyncWith called with a nil local chain (both chains invalid)")
	}
	if remote == nil {
		return false
	}
	if remote.Len() > c.Len() {
		c.blocks = remote.blocks
		return true
	}
	return false
}
