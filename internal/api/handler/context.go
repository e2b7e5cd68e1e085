package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nicestack/user-service/internal/api/middleware"
	"github.com/nicestack/user-service/internal/core/domain"
)

// principal returns the caller stored by the guard. A missing principal means
// the route was registered without a guard; treat it as unauthenticated.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.UserID == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}
