package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultStateTTL bounds how long a user may sit on the provider consent
// screen before the callback is refused.
const DefaultStateTTL = 10 * time.Minute

// minSecretLen is the shortest HMAC secret we accept.
const minSecretLen = 16

var (
	ErrMalformed   = errors.New("jwtx: malformed state")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: state expired")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrProvider    = errors.New("jwtx: provider mismatch")
	ErrShortSecret = errors.New("jwtx: signing secret too short")
)

// StateClaims is the payload carried through an OAuth round trip in the
// `state` parameter. Subject is the user that started the flow.
type StateClaims struct {
	jwt.RegisteredClaims

	// Provider the flow was started for, e.g. "microsoft".
	Provider string `json:"prv"`
}

// StateSigner issues and checks HS256 state tokens.
type StateSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

// NewStateSigner builds a signer keyed with secret.
func NewStateSigner(secret, issuer string, ttl time.Duration) (*StateSigner, error) {
	if len(secret) < minSecretLen {
		return nil, ErrShortSecret
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateSigner{
		key:    []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		Now:    time.Now,
	}, nil
}

// TTL is how long a signed state stays valid.
func (s *StateSigner) TTL() time.Duration { return s.ttl }

// Sign returns a compact JWS naming userID as the subject.
func (s *StateSigner) Sign(userID, provider string) (string, error) {
	now := s.Now().UTC()
	claims := StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        newNonce(),
		},
		Provider: provider,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, expiry and provider and returns the claims.
func (s *StateSigner) Verify(token, provider string) (StateClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)

	var claims StateClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return StateClaims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return StateClaims{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return StateClaims{}, ErrIssuer
	default:
		return StateClaims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Provider != provider {
		return StateClaims{}, ErrProvider
	}
	if claims.Subject == "" {
		return StateClaims{}, ErrMalformed
	}

	return claims, nil
}

// newNonce makes every state unique even for back-to-back requests.
func newNonce() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
