package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// opaqueTokenBytes is the amount of randomness per token; 32 bytes gives
// 256 bits of entropy.
const opaqueTokenBytes = 32

// OpaqueTokenGenerator produces cryptographically random session tokens
// and a deterministic one-way digest of a token for at-rest storage.
type OpaqueTokenGenerator struct{}

// NewOpaqueTokenGenerator creates a new generator
func NewOpaqueTokenGenerator() *OpaqueTokenGenerator {
	return &OpaqueTokenGenerator{}
}

// Generate returns a fresh random token and its digest. The token is
// URL-safe base64 without padding, so it can travel in headers and query
// strings unescaped.
func (g *OpaqueTokenGenerator) Generate() (token string, tokenHash string, err error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, g.Hash(token), nil
}

// Hash returns the hex-encoded SHA-256 digest of a token. Deterministic,
// so the store can be queried by re-deriving the digest without ever
// persisting the raw token.
func (g *OpaqueTokenGenerator) Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
