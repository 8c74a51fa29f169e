package node

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
	klog "github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/pkg/block"
)

// loadChain reads the chain file at path. A missing or unparsable file is
// not an error: the caller falls back to a fresh genesis chain, per the
// persistence adapter's framing as a thin external collaborator rather
// than a database with its own failure semantics.
func loadChain(path string) *chain.Chain {
	data, err := os.ReadFile(path)
	if err != nil {
		return chain.Genesis()
	}

	var blocks []*block.Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		klog.Node.Warn().Err(err).Str("path", path).Msg("chain file is not valid JSON, starting fresh")
		return chain.Genesis()
	}

	c, err := chain.FromVec(blocks)
	if err != nil {
		klog.Node.Warn().Err(err).Str("path", path).Msg("chain file failed validation, starting fresh")
		return chain.Genesis()
	}
	return c
}

// saveChain writes the chain's blocks to path as a JSON array.
func saveChain(path string, c *chain.Chain) error {
	data, err := json.MarshalIndent(c.Blocks(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write chain file %s: %w", path, err)
	}
	return nil
}
