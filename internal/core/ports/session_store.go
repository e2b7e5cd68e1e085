package ports

import (
	"context"
	"time"

	"github.com/nicestack/user-service/internal/core/domain"
)

// Session binds the digests of the current access and refresh tokens of one
// login.
type Session struct {
	ID            string
	UserID        string
	AccessDigest  string
	RefreshDigest string
	ExpiresAt     time.Time
}

// SessionStore persists sessions so tokens can be revoked before they expire.
// Get returns (nil, nil) when the session does not exist.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, userID, sessionID string) (*Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteAll(ctx context.Context, userID string) error
}

// ActionTokenStore keeps single-use confirm/reset tokens.
type ActionTokenStore interface {
	Put(ctx context.Context, kind domain.TokenKind, userID, digest string, ttl time.Duration) error
	// Consume removes the stored digest and reports whether it matched.
	Consume(ctx context.Context, kind domain.TokenKind, userID, digest string) (bool, error)
}
