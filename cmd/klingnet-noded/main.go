// Klingnet proof-of-work chain node daemon.
//
// Usage:
//
//	klingnet-noded [--keypass --testnet] Run node
//	klingnet-noded --help                Show help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingnet-chain/config"
	klog "github.com/Klingon-tech/klingnet-chain/internal/log"
	"github.com/Klingon-tech/klingnet-chain/internal/node"
	"github.com/Klingon-tech/klingnet-chain/internal/p2p"
	"github.com/Klingon-tech/klingnet-chain/internal/storage"
	"golang.org/x/term"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, flags, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ───────────────────────────────────────────────────
	logFile := cfg.Log.File
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.Node

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("datadir", cfg.DataDir).
		Msg("Starting Klingnet chain node")

	// ── 3. Open peer address book ────────────────────────────────────────
	db, err := storage.NewBadger(cfg.PeerStoreDir())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PeerStoreDir()).Msg("failed to open peer store")
	}
	defer db.Close()

	// ── 4. Resolve identity passphrase, if requested ─────────────────────
	var passphrase p2p.PassphraseFunc
	if flags.KeyPass {
		passphrase = func() ([]byte, error) {
			return readPassword("Enter passphrase for node identity key: ")
		}
	}

	// ── 5. Create P2P transport ──────────────────────────────────────────
	transport := p2p.New(p2p.Config{
		ListenAddr: cfg.P2P.ListenAddr,
		Port:       cfg.P2P.Port,
		Seeds:      cfg.P2P.Seeds,
		MaxPeers:   cfg.P2P.MaxPeers,
		NoDiscover: cfg.P2P.NoDiscover,
		DB:         db,
		NetworkID:  string(cfg.Network),
		DataDir:    cfg.DataDir,
		Passphrase: passphrase,
	})

	if err := transport.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start P2P transport")
	}
	defer transport.Stop()

	logger.Info().
		Str("id", transport.ID().String()).
		Int("port", cfg.P2P.Port).
		Bool("discovery", !cfg.P2P.NoDiscover).
		Msg("P2P transport started")

	// ── 6. Build the replication node around the transport ──────────────
	n := node.New(transport, cfg.ChainFile())

	// ── 7. Run the event loop until a shutdown signal arrives ────────────
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	if err := n.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("node loop exited with error")
	}
	cancel()
	logger.Info().Msg("Goodbye!")
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}
