package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

// UserHandler handles HTTP requests for the user directory.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /users.
func (h *UserHandler) List(c echo.Context) error {
	var req listUsersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.List(c.Request().Context(), ports.UserFilter{Page: req.Page, Limit: req.Limit})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(res))
}

// Filter handles GET /users/filter/query. Text fields match partially and
// ignore case.
func (h *UserHandler) Filter(c echo.Context) error {
	var req filterUsersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.List(c.Request().Context(), toUserFilter(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(res))
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	user, err := h.service.GetByID(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Update handles PUT /users/:id. Users may only change their own record.
func (h *UserHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := domain.ValidateID(id); err != nil {
		return err
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateByProperty(c.Request().Context(), p, id, toProfilePatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// SetPhoto handles PUT /users/photo.
func (h *UserHandler) SetPhoto(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req photoRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.SetPhoto(c.Request().Context(), p, domain.Photo{Mime: req.Mime, File: req.File})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateRole handles PUT /users/role/:id.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := domain.ValidateID(id); err != nil {
		return err
	}

	var req roleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateRole(c.Request().Context(), p, id, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateStatus handles PUT /users/status/:id.
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := domain.ValidateID(id); err != nil {
		return err
	}

	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateStatus(c.Request().Context(), p, id, domain.UserStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
