package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

// MinPasswordLength is the shortest password accepted on registration and
// password change.
const MinPasswordLength = 6

// TokenTTLs groups the lifetimes of every token kind.
type TokenTTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Confirm time.Duration
	Reset   time.Duration
}

func (t TokenTTLs) withDefaults() TokenTTLs {
	if t.Access <= 0 {
		t.Access = 15 * time.Minute
	}
	if t.Refresh <= 0 {
		t.Refresh = 7 * 24 * time.Hour
	}
	if t.Confirm <= 0 {
		t.Confirm = 24 * time.Hour
	}
	if t.Reset <= 0 {
		t.Reset = time.Hour
	}
	return t
}

// AuthService implements registration, confirmation, login, token refresh,
// logout and the password flows.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionStore
	actions  ports.ActionTokenStore
	codec    ports.TokenCodec
	notifier ports.Notifier
	ttl      TokenTTLs
	cost     int
	now      func() time.Time
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionStore,
	actions ports.ActionTokenStore,
	codec ports.TokenCodec,
	notifier ports.Notifier,
	ttl TokenTTLs,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		actions:  actions,
		codec:    codec,
		notifier: notifier,
		ttl:      ttl.withDefaults(),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		log:      log,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		Age:          in.Age,
		Gender:       in.Gender,
		Role:         domain.RoleUser,
		Status:       domain.StatusPending,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.issueAction(ctx, domain.TokenConfirm, user, s.ttl.Confirm)
	if err != nil {
		// the account stays pending until an admin activates it
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue confirmation token")
		return user, nil
	}
	s.notifier.Send(ctx, ports.NotifyConfirmation, user, ports.NotificationPayload{Token: token})

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Confirm activates a pending account. Confirming an already active account
// succeeds without consuming anything.
func (s *AuthService) Confirm(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.codec.VerifyKind(token, domain.TokenConfirm)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("confirm: %w", err)
	}
	if user.Status == domain.StatusActive {
		return user, nil
	}
	if user.Status != domain.StatusPending {
		return nil, domain.ErrForbidden
	}

	ok, err := s.actions.Consume(ctx, domain.TokenConfirm, user.ID, s.codec.Digest(token))
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidToken
	}

	active := domain.StatusActive
	updated, err := s.users.Update(ctx, user.ID, ports.UserUpdate{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user confirmed")
	return updated, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, *domain.User, error) {
	if email == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, domain.ErrAccountInactive
	}

	pair, err := s.startSession(ctx, user, uuid.NewString())
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return pair, user, nil
}

// Refresh rotates both tokens of the caller's session. The guard has already
// checked that p.Token is the session's current refresh token.
func (s *AuthService) Refresh(ctx context.Context, p domain.Principal) (*domain.TokenPair, error) {
	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	pair, err := s.startSession(ctx, user, p.SessionID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, p domain.Principal) error {
	if err := s.sessions.Delete(ctx, p.UserID, p.SessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", p.UserID).Msg("user logged out")
	return nil
}

// Forgot emails a reset link when email belongs to an active account. It
// reports success either way so the endpoint cannot be used to probe for
// registered addresses.
func (s *AuthService) Forgot(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("forgot: %w", err)
	}
	if !user.IsActive() {
		s.log.Debug().Str("user_id", user.ID).Str("status", string(user.Status)).Msg("password reset requested for inactive account")
		return nil
	}

	token, err := s.issueAction(ctx, domain.TokenReset, user, s.ttl.Reset)
	if err != nil {
		return fmt.Errorf("forgot: %w", err)
	}
	s.notifier.Send(ctx, ports.NotifyForgotPassword, user, ports.NotificationPayload{Token: token})
	return nil
}

// Reset consumes a reset token, replaces the password with a temporary one,
// revokes every session and emails the temporary password.
func (s *AuthService) Reset(ctx context.Context, token string) error {
	claims, err := s.codec.VerifyKind(token, domain.TokenReset)
	if err != nil {
		return domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("reset: %w", err)
	}
	if !user.IsActive() {
		return domain.ErrAccountInactive
	}

	ok, err := s.actions.Consume(ctx, domain.TokenReset, user.ID, s.codec.Digest(token))
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if !ok {
		return domain.ErrInvalidToken
	}

	temp, err := temporaryPassword(12)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := s.setPassword(ctx, user.ID, temp); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	s.notifier.Send(ctx, ports.NotifyTemporaryPassword, user, ports.NotificationPayload{Password: temp})
	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// ChangePassword replaces the caller's password and revokes all of its
// sessions, including the current one.
func (s *AuthService) ChangePassword(ctx context.Context, p domain.Principal, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return domain.NewValidationError("new_password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// Revoke before storing: a failed revocation keeps the old password.
	if err := s.sessions.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	h := string(hash)
	if _, err := s.users.Update(ctx, userID, ports.UserUpdate{PasswordHash: &h}); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User, sessionID string) (*domain.TokenPair, error) {
	access, err := s.codec.IssueKind(domain.TokenAccess, user.ID, user.Role, sessionID, s.ttl.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueKind(domain.TokenRefresh, user.ID, user.Role, sessionID, s.ttl.Refresh)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.sessions.Save(ctx, ports.Session{
		ID:            sessionID,
		UserID:        user.ID,
		AccessDigest:  s.codec.Digest(access),
		RefreshDigest: s.codec.Digest(refresh),
		ExpiresAt:     now.Add(s.ttl.Refresh),
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.ttl.Access),
	}, nil
}

func (s *AuthService) issueAction(ctx context.Context, kind domain.TokenKind, user *domain.User, ttl time.Duration) (string, error) {
	token, err := s.codec.IssueKind(kind, user.ID, user.Role, uuid.NewString(), ttl)
	if err != nil {
		return "", err
	}
	if err := s.actions.Put(ctx, kind, user.ID, s.codec.Digest(token), ttl); err != nil {
		return "", err
	}
	return token, nil
}

const (
	lowerChars = "abcdefghijkmnopqrstuvwxyz"
	upperChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars = "23456789"
)

// temporaryPassword returns a random password of length n containing at
// least one lowercase letter, one uppercase letter and one digit.
func temporaryPassword(n int) (string, error) {
	if n < 3 {
		n = 3
	}
	all := lowerChars + upperChars + digitChars
	sets := []string{lowerChars, upperChars, digitChars}

	out := make([]byte, n)
	for i := range out {
		set := all
		if i < len(sets) {
			set = sets[i]
		}
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		out[i] = c
	}

	// shuffle so the guaranteed classes are not always in front
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func randomChar(set string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[idx.Int64()], nil
}
