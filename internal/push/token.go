package push

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoadPrivateKey reads an APNs .p8 signing key.
func LoadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apns: read key %s: %w", path, err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("apns: parse key %s: %w", path, err)
	}
	return key, nil
}

// TokenSource signs ES256 provider tokens and reuses each one for ttl.
type TokenSource struct {
	key    *ecdsa.PrivateKey
	keyID  string
	teamID string
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

func NewTokenSource(key *ecdsa.PrivateKey, keyID, teamID string, ttl time.Duration) *TokenSource {
	return &TokenSource{
		key:    key,
		keyID:  keyID,
		teamID: teamID,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Token returns the cached token, signing a new one once it is ttl old.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Sub(s.issuedAt) < s.ttl {
		return s.token, nil
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": s.teamID,
		"iat": now.Unix(),
	})
	tok.Header["kid"] = s.keyID

	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("apns: sign provider token: %w", err)
	}
	s.token = signed
	s.issuedAt = now
	return signed, nil
}
