// Package crypto provides the BLAKE3 digest used to deduplicate gossip
// traffic. Block hashing is SHA-256 and lives in pkg/block, since the wire
// format pins that choice down; this package is for everything else that
// wants a fast, non-cryptographically-pinned digest.
package crypto

import "github.com/zeebo/blake3"

// DigestSize is the length in bytes of a Digest.
const DigestSize = 32

// Digest is a BLAKE3-256 digest.
type Digest [DigestSize]byte

// Hash computes the BLAKE3-256 digest of data.
func Hash(data []byte) Digest {
	return blake3.Sum256(data)
}
