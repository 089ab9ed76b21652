package cache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// TokenHasher turns raw access tokens into salted, non-reversible digests
// that are safe to use as keys.
type TokenHasher struct {
	key [blake2b.Size256]byte
}

// NewTokenHasher derives the MAC key from salt. Any salt length is accepted.
func NewTokenHasher(salt string) *TokenHasher {
	return &TokenHasher{key: blake2b.Sum256([]byte(salt))}
}

// Hash returns the hex encoded keyed BLAKE2b-256 digest of token.
func (h *TokenHasher) Hash(token string) string {
	mac, err := blake2b.New256(h.key[:])
	if err != nil {
		// Only possible for keys longer than 64 bytes.
		panic(err)
	}
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
