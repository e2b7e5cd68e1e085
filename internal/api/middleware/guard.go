package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/api/metrics"
	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

const principalKey = "principal"

// GuardError is the single error shape produced by the guard. Err is either
// domain.ErrUnauthorized or domain.ErrForbidden; Reason is for logs only.
type GuardError struct {
	Err    error
	Reason string
}

func (e *GuardError) Error() string { return e.Err.Error() }

func (e *GuardError) Unwrap() error { return e.Err }

// Status returns the HTTP status class of the failure.
func (e *GuardError) Status() int {
	if errors.Is(e.Err, domain.ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func unauthorized(reason string) *GuardError {
	return &GuardError{Err: domain.ErrUnauthorized, Reason: reason}
}

// Guard authenticates bearer tokens and enforces per-route role allow-lists.
type Guard struct {
	codec     ports.TokenCodec
	validator ports.AuthValidator
	log       zerolog.Logger
}

func NewGuard(codec ports.TokenCodec, validator ports.AuthValidator, log zerolog.Logger) *Guard {
	return &Guard{
		codec:     codec,
		validator: validator,
		log:       log,
	}
}

// Check runs the full admission sequence for a raw Authorization header. An
// empty allow list admits any authenticated role.
func (g *Guard) Check(ctx context.Context, header string, kind domain.TokenKind, allow []domain.Role) (*domain.Principal, error) {
	raw, ok := bearer(header)
	if !ok {
		return nil, unauthorized("missing or malformed authorization header")
	}

	claims, err := g.codec.VerifyKind(raw, kind)
	if err != nil {
		return nil, unauthorized("token verification failed: " + err.Error())
	}

	if !g.validator.IsTokenValid(ctx, claims.UserID, raw) {
		return nil, unauthorized("token revoked or unknown session")
	}
	if !g.validator.IsUserActive(ctx, claims.UserID) {
		return nil, unauthorized("user missing or not active")
	}

	if len(allow) > 0 && !roleAllowed(claims.Role, allow) {
		return nil, &GuardError{Err: domain.ErrForbidden, Reason: "role " + string(claims.Role) + " not allowed"}
	}

	return &domain.Principal{
		UserID:    claims.UserID,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		Token:     raw,
	}, nil
}

// Require guards a route with an access token and the given role allow list.
func (g *Guard) Require(roles ...domain.Role) echo.MiddlewareFunc {
	return g.middleware(domain.TokenAccess, roles)
}

// RequireRefresh guards the token refresh route with a refresh token.
func (g *Guard) RequireRefresh(roles ...domain.Role) echo.MiddlewareFunc {
	return g.middleware(domain.TokenRefresh, roles)
}

func (g *Guard) middleware(kind domain.TokenKind, roles []domain.Role) echo.MiddlewareFunc {
	allow := append([]domain.Role(nil), roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := g.Check(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), kind, allow)
			if err != nil {
				var ge *GuardError
				if errors.As(err, &ge) {
					decision := "unauthorized"
					if ge.Status() == http.StatusForbidden {
						decision = "forbidden"
					}
					metrics.GuardDecisionsTotal.WithLabelValues(decision).Inc()
					g.log.Debug().
						Str("method", c.Request().Method).
						Str("path", c.Path()).
						Str("reason", ge.Reason).
						Msg("request rejected")
				}
				return err
			}

			metrics.GuardDecisionsTotal.WithLabelValues("allow").Inc()
			SetPrincipal(c, *p)
			return next(c)
		}
	}
}

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the principal stored by the guard.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func roleAllowed(role domain.Role, allow []domain.Role) bool {
	for _, r := range allow {
		if r == role {
			return true
		}
	}
	return false
}
