package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sparked/internal/config"
	apperrors "sparked/internal/errors"
	"sparked/internal/service"
	"sparked/internal/session"
)

// AuthHandler handles login, logout and the dashboard.
type AuthHandler struct {
	authService service.AuthService
	pages       pageRenderer
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, pages: newPageRenderer(cfg), log: log}
}

// LoginRequest represents a login form submission.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	BotToken string `form:"cf-turnstile-response" json:"cf-turnstile-response"`
}

// LoginPage renders the login form, or skips to the dashboard when already logged in.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if email, ok := session.FromContext(c).Get(session.KeyUserEmail); ok && email != "" {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return h.pages.render(c, "login.html", "Log in", nil)
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param cf-turnstile-response formData string true "Turnstile token"
// @Success 200 {object} FormResponse
// @Failure 400 {object} FormResponse
// @Failure 401 {object} FormResponse
// @Failure 403 {object} FormResponse "unverified accounts get redirect_url /confirm"
// @Failure 503 {object} FormResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, FormResponse{Status: statusError, Message: "invalid request body"})
	}

	_, err := h.authService.Login(c.Request().Context(), session.FromContext(c), req.Email, req.Password, req.BotToken, c.RealIP())
	if err != nil {
		if errors.Is(err, apperrors.ErrEmailNotVerified) {
			return formError(c, err, "/confirm")
		}
		if apperrors.MapErrorToHTTP(err).StatusCode >= http.StatusInternalServerError {
			h.log.Error("login failed", zap.Error(err))
		}
		return formError(c, err, "")
	}

	return c.JSON(http.StatusOK, FormResponse{
		Status:      statusSuccess,
		Message:     "Login successful.",
		RedirectURL: "/dashboard",
	})
}

// Dashboard renders the logged-in user's page, redirecting to login otherwise.
func (h *AuthHandler) Dashboard(c echo.Context) error {
	user, err := h.authService.RequireSession(c.Request().Context(), session.FromContext(c))
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionRequired) {
			return redirectWithFlash(c, flashWarning, "Please log in to access the dashboard.", "/login")
		}
		h.log.Error("dashboard lookup failed", zap.Error(err))
		return apiError(err)
	}
	return h.pages.render(c, "dashboard.html", "Dashboard", withUser(user))
}

// Logout clears the session and returns to the login page.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.authService.Logout(session.FromContext(c))
	return redirectWithFlash(c, flashInfo, "You have been logged out.", "/login")
}
