package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicestack/user-service/internal/core/domain"
)

func TestSessionStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewSessionStore(db)

	mock.ExpectHGetAll("session:u1:s1").SetVal(map[string]string{
		"access":     "a-digest",
		"refresh":    "r-digest",
		"expires_at": "1767225600",
	})

	sess, err := store.Get(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "a-digest", sess.AccessDigest)
	assert.Equal(t, "r-digest", sess.RefreshDigest)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), sess.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_GetMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewSessionStore(db)

	mock.ExpectHGetAll("session:u1:gone").SetVal(map[string]string{})

	sess, err := store.Get(context.Background(), "u1", "gone")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionStore_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewSessionStore(db)

	mock.ExpectHGetAll("session:u1:s1").SetErr(errors.New("conn reset"))

	_, err := store.Get(context.Background(), "u1", "s1")
	assert.Error(t, err)
}

func TestSessionStore_DeleteAll(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewSessionStore(db)

	mock.ExpectSMembers("sessions:u1").SetVal([]string{"s1", "s2"})
	mock.ExpectDel("session:u1:s1", "session:u1:s2", "sessions:u1").SetVal(3)

	require.NoError(t, store.DeleteAll(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenStore_Put(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewActionTokenStore(db)

	mock.ExpectSet("action:confirm:u1", "digest", time.Hour).SetVal("OK")

	require.NoError(t, store.Put(context.Background(), domain.TokenConfirm, "u1", "digest", time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenStore_ConsumeMatch(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewActionTokenStore(db)

	mock.ExpectGet("action:reset:u1").SetVal("digest")
	mock.ExpectGetDel("action:reset:u1").SetVal("digest")

	ok, err := store.Consume(context.Background(), domain.TokenReset, "u1", "digest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenStore_ConsumeMismatchKeepsStoredToken(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewActionTokenStore(db)

	mock.ExpectGet("action:reset:u1").SetVal("newer")

	ok, err := store.Consume(context.Background(), domain.TokenReset, "u1", "older")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenStore_ConsumeMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewActionTokenStore(db)

	mock.ExpectGet("action:confirm:u1").RedisNil()

	ok, err := store.Consume(context.Background(), domain.TokenConfirm, "u1", "digest")
	require.NoError(t, err)
	assert.False(t, ok)
}
