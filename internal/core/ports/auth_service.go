package ports

import (
	"context"

	"github.com/nicestack/user-service/internal/core/domain"
)

// RegisterInput carries the registration form after transport validation.
type RegisterInput struct {
	Name     string
	Surname  string
	Email    string
	Password string
	Phone    string
	Age      *int
	Gender   domain.Gender
}

// AuthValidator answers the revocation and account-state questions asked by
// the access guard. Both methods fail closed.
type AuthValidator interface {
	IsTokenValid(ctx context.Context, userID, token string) bool
	IsUserActive(ctx context.Context, userID string) bool
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Confirm(ctx context.Context, token string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, *domain.User, error)
	Refresh(ctx context.Context, p domain.Principal) (*domain.TokenPair, error)
	Logout(ctx context.Context, p domain.Principal) error
	Forgot(ctx context.Context, email string) error
	Reset(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, p domain.Principal, oldPassword, newPassword string) error
}
