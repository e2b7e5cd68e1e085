package ports

import (
	"time"

	"github.com/nicestack/user-service/internal/core/domain"
)

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	Issue(userID string, role domain.Role, ttl time.Duration) (string, error)
	IssueKind(kind domain.TokenKind, userID string, role domain.Role, sessionID string, ttl time.Duration) (string, error)
	Verify(token string) (*domain.Claims, error)
	VerifyKind(token string, kind domain.TokenKind) (*domain.Claims, error)
	Digest(token string) string
}
