// Package block defines the immutable, self-validating block that forms
// the chain, and the proof-of-work used to mine it.
package block

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DifficultyPrefix is the required leading substring of a block hash's
// binary representation. Since binaryString drops per-byte zero padding,
// "00" is met only when the hash's first two bytes are both zero.
const DifficultyPrefix = "00"

// ZeroHash is the hex encoding of 32 zero bytes, used as the genesis
// block's predecessor hash.
var ZeroHash = hex.EncodeToString(make([]byte, 32))

// Block is an immutable record in the chain. Every field is fixed at
// construction time; Mine and Genesis are the only constructors.
type Block struct {
	Idx       uint64 `json:"idx"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"prev_hash"`
	Nonce     uint64 `json:"nonce"`
	Hash      string `json:"hash"`
}

// Genesis constructs the unique starting block. Its hash still obeys the
// canonical-hashing rule, but the difficulty check is waived for it by
// callers (a chain of length 1 holding only genesis is always valid).
func Genesis() *Block {
	b := &Block{
		Idx:       0,
		Data:      "genesis",
		Timestamp: 0,
		PrevHash:  ZeroHash,
		Nonce:     0,
	}
	b.Hash = canonicalHash(b)
	return b
}

// Mine builds the next block on top of prev carrying data, incrementing
// the nonce from zero until the resulting hash's binary representation
// begins with DifficultyPrefix. The timestamp is captured once before the
// search loop starts; the loop itself is CPU-bound and does not suspend.
func Mine(prev *Block, data string) *Block {
	b := &Block{
		Idx:       prev.Idx + 1,
		Data:      data,
		Timestamp: time.Now().Unix(),
		PrevHash:  prev.Hash,
	}
	for nonce := uint64(0); ; nonce++ {
		b.Nonce = nonce
		h := canonicalHash(b)
		if strings.HasPrefix(binaryString(h), DifficultyPrefix) {
			b.Hash = h
			return b
		}
	}
}

// Validate checks that a block is internally consistent: its hash meets
// the difficulty target and its stored hash matches the recomputed one.
// Validate does not know about chain position; BlockTooOld-style checks
// live in the chain's classification, not here.
func (b *Block) Validate() error {
	if !strings.HasPrefix(binaryString(b.Hash), DifficultyPrefix) {
		return &DifficultyCheckFailedErr{HashBinary: binaryString(b.Hash), DifficultyPrefix: DifficultyPrefix}
	}
	computed := canonicalHash(b)
	if computed != b.Hash {
		return &InconsistentHashErr{Stored: b.Hash, Computed: computed}
	}
	return nil
}

// ValidateGenesis checks a block in its role as the sole genesis block of
// a length-1 chain: it waives the difficulty check but still requires the
// stored hash to match its canonical recomputation.
func (b *Block) ValidateGenesis() error {
	computed := canonicalHash(b)
	if computed != b.Hash {
		return &InconsistentHashErr{Stored: b.Hash, Computed: computed}
	}
	return nil
}

// canonicalForm is the exact field order hashed for a block: idx, data,
// timestamp, prev_hash, nonce. json.Marshal on a struct preserves field
// declaration order and emits no extraneous whitespace, which is exactly
// the canonical serialization this package's interoperability depends on.
type canonicalForm struct {
	Idx       uint64 `json:"idx"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"prev_hash"`
	Nonce     uint64 `json:"nonce"`
}

// canonicalHash computes the SHA-256 hex digest of b's canonical JSON
// representation. The hash field itself is never part of what's hashed.
func canonicalHash(b *Block) string {
	// json.Marshal cannot fail on this struct: every field is a concrete
	// string or integer type, never an interface, channel, or cyclic
	// pointer.
	canon, _ := json.Marshal(canonicalForm{
		Idx:       b.Idx,
		Data:      b.Data,
		Timestamp: b.Timestamp,
		PrevHash:  b.PrevHash,
		Nonce:     b.Nonce,
	})
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}

// binaryString returns the "binary representation" of a hex hash: each
// byte's minimum-width binary digits concatenated with no zero-padding to
// a fixed width. A leading zero byte therefore contributes a single "0",
// not "00000000" — this is what determines how many characters the
// difficulty prefix actually requires.
func binaryString(hexHash string) string {
	raw, err := hex.DecodeString(hexHash)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, by := range raw {
		sb.WriteString(fmt.Sprintf("%b", by))
	}
	return sb.String()
}
