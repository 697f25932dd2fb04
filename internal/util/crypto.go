package util

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// APIKeyPrefix marks keys minted by this server.
const APIKeyPrefix = "claud_"

// DisplayPrefixLen is how much of a raw key is kept for listings.
const DisplayPrefixLen = 12

// GenerateAPIKey returns a new raw key: the claud_ prefix followed by 32 hex digits.
func GenerateAPIKey() string {
	return APIKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeEqual compares SHA-256 digests so neither length nor content
// of the secret leaks through timing.
func ConstantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// KeyDisplayPrefix returns the first DisplayPrefixLen bytes of a raw key.
func KeyDisplayPrefix(key string) string {
	if len(key) <= DisplayPrefixLen {
		return key
	}
	return key[:DisplayPrefixLen]
}

// MaskToken keeps the first n bytes of a push token for logs.
func MaskToken(token string, n int) string {
	if len(token) <= n {
		return token
	}
	return token[:n] + "…"
}
