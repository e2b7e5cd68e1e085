package service

import (
	"context"
	"crypto/subtle"

	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

// AuthValidator checks that a verified token still belongs to a live
// session and that its owner may still act. Every lookup failure counts as
// "not valid".
type AuthValidator struct {
	codec    ports.TokenCodec
	sessions ports.SessionStore
	users    ports.UserRepository
	log      zerolog.Logger
}

func NewAuthValidator(codec ports.TokenCodec, sessions ports.SessionStore, users ports.UserRepository, log zerolog.Logger) *AuthValidator {
	return &AuthValidator{
		codec:    codec,
		sessions: sessions,
		users:    users,
		log:      log,
	}
}

// IsTokenValid reports whether token was issued to userID and is the current
// access or refresh token of a session that has not been revoked.
func (v *AuthValidator) IsTokenValid(ctx context.Context, userID, token string) bool {
	claims, err := v.codec.Verify(token)
	if err != nil || claims.UserID != userID || claims.SessionID == "" {
		return false
	}

	sess, err := v.sessions.Get(ctx, userID, claims.SessionID)
	if err != nil {
		v.log.Warn().Err(err).Str("user_id", userID).Msg("session lookup failed")
		return false
	}
	if sess == nil {
		return false
	}

	var stored string
	switch claims.Kind {
	case domain.TokenAccess:
		stored = sess.AccessDigest
	case domain.TokenRefresh:
		stored = sess.RefreshDigest
	default:
		return false
	}
	digest := v.codec.Digest(token)
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1
}

// IsUserActive reports whether userID exists and has status active.
func (v *AuthValidator) IsUserActive(ctx context.Context, userID string) bool {
	user, err := v.users.FindByID(ctx, userID)
	if err != nil {
		v.log.Debug().Err(err).Str("user_id", userID).Msg("user lookup failed")
		return false
	}
	return user.IsActive()
}
