package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var allowedPhotoMimes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// UserService implements the user directory use cases.
type UserService struct {
	repo     ports.UserRepository
	sessions ports.SessionStore
	log      zerolog.Logger
}

func NewUserService(repo ports.UserRepository, sessions ports.SessionStore, log zerolog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		sessions: sessions,
		log:      log,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// List returns a page of users matching filter. Page defaults to 1, limit to
// 20 and is capped at 100.
func (s *UserService) List(ctx context.Context, filter ports.UserFilter) (*ports.ListUsersResult, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: user admin")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of: pending active inactive banned")
	}
	if filter.Gender != "" && filter.Gender != domain.GenderMale && filter.Gender != domain.GenderFemale {
		return nil, domain.NewValidationError("gender", "must be one of: male female")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &ports.ListUsersResult{
		Items:      users,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

// UpdateByProperty applies a partial profile update. A user may only update
// its own record; an admin may update any.
func (s *UserService) UpdateByProperty(ctx context.Context, actor domain.Principal, id string, patch ports.ProfilePatch) (*domain.User, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && actor.UserID != id {
		return nil, domain.ErrForbidden
	}

	upd := ports.UserUpdate{
		Name:    patch.Name,
		Surname: patch.Surname,
		Phone:   patch.Phone,
		Age:     patch.Age,
		Gender:  patch.Gender,
	}
	if upd.Empty() {
		return nil, domain.NewValidationError("body", "no updatable fields provided")
	}

	user, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Msg("user updated")
	return user, nil
}

// UpdateRole changes a user's role and revokes its sessions so the new role
// takes effect on the next login.
func (s *UserService) UpdateRole(ctx context.Context, actor domain.Principal, id string, role domain.Role) (*domain.User, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: user admin")
	}
	if actor.UserID == id {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.Update(ctx, id, ports.UserUpdate{Role: &role})
	if err != nil {
		return nil, err
	}
	// Issued tokens carry the old role until they are revoked, so a failed
	// revocation must surface and the caller retries.
	if err := s.sessions.DeleteAll(ctx, id); err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("failed to revoke sessions after role change")
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}

	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Str("role", string(role)).Msg("role changed")
	return user, nil
}

// UpdateStatus changes a user's status. Leaving active revokes every session.
func (s *UserService) UpdateStatus(ctx context.Context, actor domain.Principal, id string, status domain.UserStatus) (*domain.User, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of: pending active inactive banned")
	}
	if actor.UserID == id {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.Update(ctx, id, ports.UserUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	if status != domain.StatusActive {
		s.revoke(ctx, id)
	}

	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Str("status", string(status)).Msg("status changed")
	return user, nil
}

// SetPhoto stores avatar metadata on the caller's own record.
func (s *UserService) SetPhoto(ctx context.Context, actor domain.Principal, photo domain.Photo) (*domain.User, error) {
	if _, ok := allowedPhotoMimes[photo.Mime]; !ok {
		return nil, domain.NewValidationError("mime", "must be one of: image/jpeg image/png image/webp")
	}
	if photo.File == "" {
		return nil, domain.NewValidationError("file", "is required")
	}
	return s.repo.Update(ctx, actor.UserID, ports.UserUpdate{Photo: &photo})
}

// Delete removes a user permanently. An admin cannot delete itself.
func (s *UserService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	if actor.UserID == id {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.revoke(ctx, id)

	s.log.Info().Str("user_id", id).Str("actor_id", actor.UserID).Msg("user deleted")
	return nil
}

// revoke drops every session of userID. A failure is logged only: the guard
// still rejects inactive or deleted users on its account check. Role changes
// do not go through here.
func (s *UserService) revoke(ctx context.Context, userID string) {
	if err := s.sessions.DeleteAll(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to revoke sessions")
	}
}
