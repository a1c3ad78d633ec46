package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"sparked/internal/service"
	"sparked/internal/session"
)

// UserHandler serves administrative user endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ListUsers godoc
// @Summary List users
// @Description Admin only.
// @Tags admin
// @Produce json
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context(), session.FromContext(c))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, users)
}
