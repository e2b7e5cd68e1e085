package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

// SessionStore keeps one hash per login and a per-user index set.
//
//	session:<user_id>:<session_id>  hash {access, refresh, expires_at}
//	sessions:<user_id>              set of session ids
type SessionStore struct {
	client redis.Cmdable
}

func NewSessionStore(client redis.Cmdable) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, sess ports.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session: already expired")
	}

	key := sessionKey(sess.UserID, sess.ID)
	idx := indexKey(sess.UserID)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, map[string]any{
			"access":     sess.AccessDigest,
			"refresh":    sess.RefreshDigest,
			"expires_at": sess.ExpiresAt.Unix(),
		})
		p.Expire(ctx, key, ttl)
		p.SAdd(ctx, idx, sess.ID)
		// sessions share one TTL, so the newest one always outlives the rest
		p.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, userID, sessionID string) (*ports.Session, error) {
	vals, err := s.client.HGetAll(ctx, sessionKey(userID, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	sess := &ports.Session{
		ID:            sessionID,
		UserID:        userID,
		AccessDigest:  vals["access"],
		RefreshDigest: vals["refresh"],
	}
	var exp int64
	if _, err := fmt.Sscan(vals["expires_at"], &exp); err == nil {
		sess.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, userID, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(userID, sessionID))
		p.SRem(ctx, indexKey(userID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAll revokes every session of userID.
func (s *SessionStore) DeleteAll(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, indexKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(userID, id))
	}
	keys = append(keys, indexKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}

func indexKey(userID string) string {
	return "sessions:" + userID
}

// ActionTokenStore keeps the digest of the latest confirm/reset token per
// user. Issuing a new token replaces the previous one.
type ActionTokenStore struct {
	client redis.Cmdable
}

func NewActionTokenStore(client redis.Cmdable) *ActionTokenStore {
	return &ActionTokenStore{client: client}
}

func (s *ActionTokenStore) Put(ctx context.Context, kind domain.TokenKind, userID, digest string, ttl time.Duration) error {
	if err := s.client.Set(ctx, actionKey(kind, userID), digest, ttl).Err(); err != nil {
		return fmt.Errorf("put action token: %w", err)
	}
	return nil
}

// Consume deletes the stored digest if it matches. GETDEL makes a second
// concurrent consume observe nothing.
func (s *ActionTokenStore) Consume(ctx context.Context, kind domain.TokenKind, userID, digest string) (bool, error) {
	key := actionKey(kind, userID)

	stored, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume action token: %w", err)
	}
	if stored != digest {
		return false, nil
	}

	taken, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume action token: %w", err)
	}
	return taken == digest, nil
}

func actionKey(kind domain.TokenKind, userID string) string {
	return fmt.Sprintf("action:%s:%s", kind, userID)
}
