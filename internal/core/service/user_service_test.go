package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

func strPtr(s string) *string { return &s }

func actorOf(u *domain.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Role: u.Role}
}

func TestUserService_GetByID(t *testing.T) {
	f := newFixture()
	u := f.users.seed("bob@example.com", domain.RoleUser, domain.StatusActive, "secret")

	got, err := f.directory.GetByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "bob@example.com" {
		t.Fatalf("unexpected user %+v", got)
	}

	if _, err := f.directory.GetByID(context.Background(), "not-an-id"); err != domain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := f.directory.GetByID(context.Background(), "aaaaaaaaaaaaaaaaaaaaaaaa"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_List_Pagination(t *testing.T) {
	f := newFixture()
	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		f.users.seed(email, domain.RoleUser, domain.StatusActive, "secret")
	}

	res, err := f.directory.List(context.Background(), ports.UserFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Page != 1 || res.Limit != 2 || res.Total != 3 || res.TotalPages != 2 || len(res.Items) != 2 {
		t.Fatalf("unexpected page %+v", res)
	}

	res, err = f.directory.List(context.Background(), ports.UserFilter{Page: 1, Limit: 500})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Limit != 100 {
		t.Fatalf("expected limit capped at 100, got %d", res.Limit)
	}
}

func TestUserService_List_RejectsUnknownEnums(t *testing.T) {
	f := newFixture()

	cases := []ports.UserFilter{
		{Role: "root"},
		{Status: "deleted"},
		{Gender: "other"},
	}
	for _, c := range cases {
		if _, err := f.directory.List(context.Background(), c); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("filter %+v: expected validation error, got %v", c, err)
		}
	}
}

func TestUserService_UpdateByProperty_Ownership(t *testing.T) {
	f := newFixture()
	alice := f.users.seed("alice@example.com", domain.RoleUser, domain.StatusActive, "secret")
	bob := f.users.seed("bob@example.com", domain.RoleUser, domain.StatusActive, "secret")
	admin := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")

	patch := ports.ProfilePatch{Name: strPtr("Alicia")}

	got, err := f.directory.UpdateByProperty(context.Background(), actorOf(alice), alice.ID, patch)
	if err != nil {
		t.Fatalf("self update: %v", err)
	}
	if got.Name != "Alicia" {
		t.Fatalf("expected name updated, got %q", got.Name)
	}

	if _, err := f.directory.UpdateByProperty(context.Background(), actorOf(bob), alice.ID, patch); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := f.directory.UpdateByProperty(context.Background(), actorOf(admin), bob.ID, ports.ProfilePatch{Surname: strPtr("Builder")}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestUserService_UpdateByProperty_EmptyPatch(t *testing.T) {
	f := newFixture()
	u := f.users.seed("eve@example.com", domain.RoleUser, domain.StatusActive, "secret")

	_, err := f.directory.UpdateByProperty(context.Background(), actorOf(u), u.ID, ports.ProfilePatch{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserService_UpdateRole(t *testing.T) {
	f := newFixture()
	admin := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")
	u := f.users.seed("joe@example.com", domain.RoleUser, domain.StatusActive, "secret")
	if _, _, err := f.auth.Login(context.Background(), "joe@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	got, err := f.directory.UpdateRole(context.Background(), actorOf(admin), u.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if got.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", got.Role)
	}
	if f.sessions.count(u.ID) != 0 {
		t.Fatalf("role change must revoke sessions")
	}

	if _, err := f.directory.UpdateRole(context.Background(), actorOf(admin), u.ID, "owner"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.directory.UpdateRole(context.Background(), actorOf(admin), admin.ID, domain.RoleUser); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden on self demotion, got %v", err)
	}
}

func TestUserService_UpdateRole_FailsWhenRevocationFails(t *testing.T) {
	f := newFixture()
	root := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")
	other := f.users.seed("second@example.com", domain.RoleAdmin, domain.StatusActive, "secret")
	if _, _, err := f.auth.Login(context.Background(), "second@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	f.sessions.err = errors.New("redis down")
	if _, err := f.directory.UpdateRole(context.Background(), actorOf(root), other.ID, domain.RoleUser); err == nil {
		t.Fatalf("expected error when sessions cannot be revoked")
	}
	f.sessions.err = nil

	if f.sessions.count(other.ID) != 1 {
		t.Fatalf("expected the session to survive the failed revocation")
	}
	got, err := f.directory.UpdateRole(context.Background(), actorOf(root), other.ID, domain.RoleUser)
	if err != nil {
		t.Fatalf("retry UpdateRole: %v", err)
	}
	if got.Role != domain.RoleUser || f.sessions.count(other.ID) != 0 {
		t.Fatalf("retry must demote and revoke, role=%s sessions=%d", got.Role, f.sessions.count(other.ID))
	}
}

func TestUserService_BanRevokesAccess(t *testing.T) {
	f := newFixture()
	admin := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")
	u := f.users.seed("mallory@example.com", domain.RoleUser, domain.StatusActive, "secret")
	pair, _, err := f.auth.Login(context.Background(), "mallory@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := f.directory.UpdateStatus(context.Background(), actorOf(admin), u.ID, domain.StatusBanned); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if f.validator.IsTokenValid(context.Background(), u.ID, pair.AccessToken) {
		t.Fatalf("banned user's token must be revoked")
	}
	if f.validator.IsUserActive(context.Background(), u.ID) {
		t.Fatalf("banned user must not be active")
	}
	if _, _, err := f.auth.Login(context.Background(), "mallory@example.com", "secret"); err != domain.ErrAccountInactive {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestUserService_UpdateStatus_Validation(t *testing.T) {
	f := newFixture()
	admin := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")

	if _, err := f.directory.UpdateStatus(context.Background(), actorOf(admin), admin.ID, domain.StatusBanned); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.directory.UpdateStatus(context.Background(), actorOf(admin), "123", domain.StatusBanned); err != domain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := f.directory.UpdateStatus(context.Background(), actorOf(admin), "aaaaaaaaaaaaaaaaaaaaaaaa", "gone"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserService_SetPhoto(t *testing.T) {
	f := newFixture()
	u := f.users.seed("pic@example.com", domain.RoleUser, domain.StatusActive, "secret")

	got, err := f.directory.SetPhoto(context.Background(), actorOf(u), domain.Photo{Mime: "image/png", File: "avatars/1.png"})
	if err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	if got.Photo == nil || got.Photo.File != "avatars/1.png" {
		t.Fatalf("photo not stored: %+v", got.Photo)
	}

	if _, err := f.directory.SetPhoto(context.Background(), actorOf(u), domain.Photo{Mime: "image/gif", File: "x.gif"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for gif, got %v", err)
	}
	if _, err := f.directory.SetPhoto(context.Background(), actorOf(u), domain.Photo{Mime: "image/png"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture()
	admin := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")
	u := f.users.seed("gone@example.com", domain.RoleUser, domain.StatusActive, "secret")
	pair, _, _ := f.auth.Login(context.Background(), "gone@example.com", "secret")

	if err := f.directory.Delete(context.Background(), actorOf(admin), admin.ID); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.directory.Delete(context.Background(), actorOf(admin), u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.validator.IsTokenValid(context.Background(), u.ID, pair.AccessToken) {
		t.Fatalf("deleted user's sessions must be gone")
	}
	if err := f.directory.Delete(context.Background(), actorOf(admin), u.ID); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_LogsCallerComponentOnce(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	log := zerolog.New(&buf).With().Str("component", "user_service").Logger()
	svc := NewUserService(f.users, f.sessions, log)
	admin := f.users.seed("root@example.com", domain.RoleAdmin, domain.StatusActive, "secret")
	u := f.users.seed("joe@example.com", domain.RoleUser, domain.StatusActive, "secret")

	if err := svc.Delete(context.Background(), actorOf(admin), u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := strings.Count(buf.String(), `"component"`); n != 1 {
		t.Fatalf("expected one component key, got %d in %s", n, buf.String())
	}
}
