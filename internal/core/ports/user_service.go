package ports

import (
	"context"

	"github.com/nicestack/user-service/internal/core/domain"
)

// ProfilePatch lists the fields a caller may change on a user record.
type ProfilePatch struct {
	Name    *string
	Surname *string
	Phone   *string
	Age     *int
	Gender  *domain.Gender
}

// ListUsersResult is a page of users.
type ListUsersResult struct {
	Items      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService defines the user directory use cases. The actor is the
// authenticated caller; ownership rules are enforced against it.
type UserService interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) (*ListUsersResult, error)
	UpdateByProperty(ctx context.Context, actor domain.Principal, id string, patch ProfilePatch) (*domain.User, error)
	UpdateRole(ctx context.Context, actor domain.Principal, id string, role domain.Role) (*domain.User, error)
	UpdateStatus(ctx context.Context, actor domain.Principal, id string, status domain.UserStatus) (*domain.User, error)
	SetPhoto(ctx context.Context, actor domain.Principal, photo domain.Photo) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Principal, id string) error
}
