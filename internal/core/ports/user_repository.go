package ports

import (
	"context"

	"github.com/nicestack/user-service/internal/core/domain"
)

// UserFilter carries the query predicates for listing users. Empty fields
// are not applied.
type UserFilter struct {
	Name    string // partial, case-insensitive
	Surname string // partial, case-insensitive
	Email   string // partial, case-insensitive
	Role    domain.Role
	Status  domain.UserStatus
	Gender  domain.Gender
	Page    int // 1-based
	Limit   int
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Surname      *string
	Phone        *string
	Age          *int
	Gender       *domain.Gender
	Role         *domain.Role
	Status       *domain.UserStatus
	PasswordHash *string
	Photo        *domain.Photo
}

// Empty reports whether the update would change nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Surname == nil && u.Phone == nil && u.Age == nil &&
		u.Gender == nil && u.Role == nil && u.Status == nil &&
		u.PasswordHash == nil && u.Photo == nil
}

// UserRepository defines persistence operations for the user directory.
// Implementations return domain.ErrUserNotFound for missing documents and
// domain.ErrUserExists on a duplicate email.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns a page of users matching filter and the total count.
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)
	// Update applies upd atomically and returns the updated document.
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
