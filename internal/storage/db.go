// Package storage provides the key-value abstraction that backs a node's
// local, non-chain state: right now that's the peer address book kept by
// internal/p2p.PeerStore. The chain itself lives in a single JSON file
// (see internal/node/persist.go) and never touches this package.
package storage

// DB is the interface p2p.PeerStore needs from its local key-value store.
// BadgerDB is the on-disk implementation a running node opens at
// boot; MemoryDB backs tests that exercise PeerStore without touching
// disk.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix, e.g. the
	// "peer/" namespace PeerStore writes under. The callback receives a
	// copy of the key; the value is not copied (BadgerDB's value is only
	// valid until fn returns). Return a non-nil error from fn to stop
	// iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
