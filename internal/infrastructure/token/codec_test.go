package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicestack/user-service/internal/core/domain"
)

const userID = "65f0c0ffee0000000000beef"

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec("secret")

	raw, err := codec.Issue(userID, domain.RoleAdmin, time.Minute)
	require.NoError(t, err)

	cl, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, cl.UserID)
	assert.Equal(t, domain.RoleAdmin, cl.Role)
	assert.Equal(t, domain.TokenAccess, cl.Kind)
}

func TestCodec_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	codec := NewCodec("secret", WithClock(clock.Now))

	raw, err := codec.Issue(userID, domain.RoleUser, 10*time.Minute)
	require.NoError(t, err)

	clock.t = clock.t.Add(9 * time.Minute)
	_, err = codec.Verify(raw)
	require.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_SignatureMismatch(t *testing.T) {
	raw, err := NewCodec("one").Issue(userID, domain.RoleUser, time.Minute)
	require.NoError(t, err)

	_, err = NewCodec("two").Verify(raw)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	raw, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewCodec("secret").Verify(raw)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestCodec_Malformed(t *testing.T) {
	codec := NewCodec("secret")

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestCodec_MissingExpiryIsMalformed(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID})
	raw, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewCodec("secret").Verify(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_VerifyKind(t *testing.T) {
	codec := NewCodec("secret")

	raw, err := codec.IssueKind(domain.TokenRefresh, userID, domain.RoleUser, "sid-1", time.Hour)
	require.NoError(t, err)

	cl, err := codec.VerifyKind(raw, domain.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", cl.SessionID)

	_, err = codec.VerifyKind(raw, domain.TokenAccess)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestCodec_IssueRejectsBadInput(t *testing.T) {
	codec := NewCodec("secret")

	_, err := codec.Issue("", domain.RoleUser, time.Minute)
	assert.Error(t, err)

	_, err = codec.Issue(userID, domain.RoleUser, 0)
	assert.Error(t, err)
}

func TestCodec_DigestIsStable(t *testing.T) {
	codec := NewCodec("secret")
	assert.Equal(t, codec.Digest("abc"), codec.Digest("abc"))
	assert.NotEqual(t, codec.Digest("abc"), codec.Digest("abd"))
	assert.Len(t, codec.Digest("abc"), 64)
}
