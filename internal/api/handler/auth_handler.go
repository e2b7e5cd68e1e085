package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nicestack/user-service/internal/api/metrics"
	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /auth/register. The account starts pending and a
// confirmation mail is queued.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("register", err)
	}

	user, err := h.authService.Register(c.Request().Context(), toRegisterInput(req))
	if err != nil {
		return observe("register", err)
	}
	observe("register", nil)

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Confirm handles GET /auth/confirm/:token.
func (h *AuthHandler) Confirm(c echo.Context) error {
	user, err := h.authService.Confirm(c.Request().Context(), c.Param("token"))
	if err != nil {
		return observe("confirm", err)
	}
	observe("confirm", nil)

	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("login", err)
	}

	pair, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return observe("login", err)
	}
	observe("login", nil)

	return c.JSON(http.StatusOK, loginResponse{
		tokenResponse: toTokenResponse(pair),
		User:          toUserResponse(user),
	})
}

// Refresh handles GET /auth/refresh. The guard admits refresh tokens only.
func (h *AuthHandler) Refresh(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	pair, err := h.authService.Refresh(c.Request().Context(), p)
	if err != nil {
		return observe("refresh", err)
	}
	observe("refresh", nil)

	return c.JSON(http.StatusOK, toTokenResponse(pair))
}

// Logout handles GET /auth/logout and ends the caller's session.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), p); err != nil {
		return observe("logout", err)
	}
	observe("logout", nil)

	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Forgot handles GET /auth/forgot?email=. The answer is the same whether or
// not the address is registered.
func (h *AuthHandler) Forgot(c echo.Context) error {
	var req forgotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("forgot", err)
	}

	if err := h.authService.Forgot(c.Request().Context(), req.Email); err != nil {
		return observe("forgot", err)
	}
	observe("forgot", nil)

	return c.JSON(http.StatusOK, messageResponse{Message: "if the email is registered, a reset link has been sent"})
}

// Reset handles GET /auth/reset/:token, the link from the forgot-password
// mail.
func (h *AuthHandler) Reset(c echo.Context) error {
	if err := h.authService.Reset(c.Request().Context(), c.Param("token")); err != nil {
		return observe("reset", err)
	}
	observe("reset", nil)

	return c.JSON(http.StatusOK, messageResponse{Message: "a temporary password has been sent to your email"})
}

// ChangePassword handles PUT /users/pass. Every session of the caller is
// revoked, so the client has to log in again.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("change_password", err)
	}

	if err := h.authService.ChangePassword(c.Request().Context(), p, req.OldPassword, req.NewPassword); err != nil {
		return observe("change_password", err)
	}
	observe("change_password", nil)

	return c.JSON(http.StatusOK, messageResponse{Message: "password changed, please log in again"})
}

// bindAndValidate decodes the request into dst and runs the struct
// validators. Malformed input is a 400; failed rules come back as a
// *domain.ValidationError.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(dst)
}

// observe records the outcome of an auth operation and returns err unchanged.
func observe(operation string, err error) error {
	metrics.AuthAttemptsTotal.WithLabelValues(operation, resultOf(err)).Inc()
	return err
}

func resultOf(err error) string {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.As(err, &he):
		return "bad_request"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	default:
		return "error"
	}
}
