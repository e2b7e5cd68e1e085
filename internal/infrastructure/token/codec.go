// Package token signs and verifies the HS256 bearer tokens used for access,
// refresh, email confirmation and password reset.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nicestack/user-service/internal/core/domain"
)

var (
	ErrMalformed         = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrExpired           = errors.New("token expired")
	ErrWrongKind         = errors.New("token kind mismatch")
)

type claims struct {
	Role domain.Role      `json:"role"`
	Kind domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec implements ports.TokenCodec.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs an access token for userID with the given role.
func (c *Codec) Issue(userID string, role domain.Role, ttl time.Duration) (string, error) {
	return c.IssueKind(domain.TokenAccess, userID, role, "", ttl)
}

// IssueKind signs a token of the given kind. sessionID becomes the jti.
func (c *Codec) IssueKind(kind domain.TokenKind, userID string, role domain.Role, sessionID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue token: empty user id")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("issue token: non-positive ttl %s", ttl)
	}

	now := c.now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the decoded claims. The
// returned error is one of ErrMalformed, ErrSignatureMismatch or ErrExpired.
func (c *Codec) Verify(raw string) (*domain.Claims, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if cl.Subject == "" {
		return nil, ErrMalformed
	}

	return &domain.Claims{
		UserID:    cl.Subject,
		Role:      cl.Role,
		Kind:      cl.Kind,
		SessionID: cl.ID,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

// VerifyKind is Verify plus a check that the token was issued for kind.
func (c *Codec) VerifyKind(raw string, kind domain.TokenKind) (*domain.Claims, error) {
	cl, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if cl.Kind != kind {
		return nil, ErrWrongKind
	}
	return cl, nil
}

// Digest returns the hex SHA-256 of a raw token. Stores keep digests, never
// raw tokens.
func (c *Codec) Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureMismatch
	default:
		return ErrMalformed
	}
}
