package p2p

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// identityFileName is the persisted libp2p identity key, relative to the
// node's data directory. Keeping the peer ID stable across restarts means
// peers that dialed us before can find us again at the same address.
const identityFileName = "node.key"

// encryptedPrefix marks an at-rest-encrypted identity file. Everything
// after it is hex(salt || nonce || ciphertext). A file without this prefix
// is the raw hex-encoded Ed25519 key, unencrypted.
const encryptedPrefix = "enc1:"

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltSize     = 16
)

// PassphraseFunc supplies a passphrase for encrypting or decrypting the
// node identity key. A nil PassphraseFunc means the identity is stored
// unencrypted.
type PassphraseFunc func() ([]byte, error)

// loadOrCreateIdentity loads a persisted libp2p identity key from dataDir,
// or generates a new one and saves it. passphrase is consulted only when
// non-nil: it is asked for when a new key is created and when an encrypted
// file is loaded. An existing unencrypted file is loaded without asking and
// stays unencrypted.
func loadOrCreateIdentity(dataDir string, passphrase PassphraseFunc) (libp2pcrypto.PrivKey, error) {
	keyPath := filepath.Join(dataDir, identityFileName)

	data, err := os.ReadFile(keyPath)
	if err == nil {
		raw, err := decodeIdentity(string(data), passphrase)
		if err != nil {
			return nil, fmt.Errorf("decode node key: %w", err)
		}
		return libp2pcrypto.UnmarshalEd25519PrivateKey(raw)
	}

	priv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	raw, err := priv.Raw()
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	encoded, err := encodeIdentity(raw, passphrase)
	if err != nil {
		return nil, fmt.Errorf("encode node key: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("save node key: %w", err)
	}

	return priv, nil
}

// encodeIdentity renders raw key bytes as the on-disk format, encrypting
// with passphrase when one is supplied.
func encodeIdentity(raw []byte, passphrase PassphraseFunc) (string, error) {
	if passphrase == nil {
		return hex.EncodeToString(raw), nil
	}

	pass, err := passphrase()
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey(pass, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, raw, nil)

	blob := append(append(salt, nonce...), ciphertext...)
	return encryptedPrefix + hex.EncodeToString(blob), nil
}

// decodeIdentity parses the on-disk format, decrypting with passphrase if
// the file was written encrypted.
func decodeIdentity(data string, passphrase PassphraseFunc) ([]byte, error) {
	if !strings.HasPrefix(data, encryptedPrefix) {
		return hex.DecodeString(data)
	}

	if passphrase == nil {
		return nil, fmt.Errorf("identity key is encrypted but no passphrase was supplied")
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}

	blob, err := hex.DecodeString(strings.TrimPrefix(data, encryptedPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	if len(blob) < saltSize {
		return nil, fmt.Errorf("identity file truncated")
	}
	salt, rest := blob[:saltSize], blob[saltSize:]

	key := argon2.IDKey(pass, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(rest) < aead.NonceSize() {
		return nil, fmt.Errorf("identity file truncated")
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	raw, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wrong passphrase or corrupted identity file: %w", err)
	}
	return raw, nil
}
