// Package config handles node configuration: a network identity plus the
// per-node operational settings (p2p, logging) that can vary between
// nodes without affecting consensus.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies which network a node joins. It scopes the mDNS
// discovery namespace, so nodes on different networks do not find each
// other on the LAN; the GossipSub topic ("blocks") is the same for every
// network.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds node-specific runtime configuration.
type Config struct {
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	P2P P2PConfig
	Log LogConfig
}

// P2PConfig holds peer-to-peer transport settings.
type P2PConfig struct {
	ListenAddr string   `conf:"p2p.listen"`
	Port       int      `conf:"p2p.port"`
	Seeds      []string `conf:"p2p.seeds"` // static seed multiaddrs dialed at startup
	MaxPeers   int      `conf:"p2p.maxpeers"`
	NoDiscover bool     `conf:"p2p.nodiscover"` // disable mDNS, rely on seeds only
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-chain
//	macOS:   ~/Library/Application Support/KlingnetChain
//	Windows: %APPDATA%\KlingnetChain
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-chain"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetChain")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetChain")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetChain")
	default:
		return filepath.Join(home, ".klingnet-chain")
	}
}

// ChainFile returns the path to the persisted main chain.
func (c *Config) ChainFile() string {
	return filepath.Join(c.DataDir, "blocks.json")
}

// IdentityFile returns the path to the persisted libp2p identity key.
func (c *Config) IdentityFile() string {
	return filepath.Join(c.DataDir, "node.key")
}

// PeerStoreDir returns the badger directory backing the peer address book.
func (c *Config) PeerStoreDir() string {
	return filepath.Join(c.DataDir, "peerstore")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet.conf")
}
