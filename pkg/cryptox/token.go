package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// TokenSize256 is 32 random bytes, 43 characters once encoded. Session
// cookies and invitation tokens use it.
const TokenSize256 = 32

// GenerateToken returns size random bytes encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the base64url SHA-256 digest of token. Only the
// fingerprint is persisted, so a leaked table cannot be replayed.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewOpaqueToken generates a 256-bit token and its fingerprint in one go.
// The raw value goes to the client once; the fingerprint goes to storage.
func NewOpaqueToken() (raw, fingerprint string, err error) {
	raw, err = GenerateToken(TokenSize256)
	if err != nil {
		return "", "", err
	}
	return raw, FingerprintToken(raw), nil
}
