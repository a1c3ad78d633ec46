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
	"sparked/internal/view"
)

// RegistrationHandler handles sign-up and email confirmation.
type RegistrationHandler struct {
	svc   service.VerificationService
	pages pageRenderer
	log   *zap.Logger
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(svc service.VerificationService, cfg *config.Config, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, pages: newPageRenderer(cfg), log: log}
}

// RegisterRequest represents a registration form submission.
type RegisterRequest struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	BotToken        string `form:"cf-turnstile-response" json:"cf-turnstile-response"`
}

// CheckEmailRequest carries the address to probe.
type CheckEmailRequest struct {
	Email string `form:"email" json:"email" validate:"required"`
}

// ResendRequest asks for a new verification link.
type ResendRequest struct {
	Email string `form:"email" json:"email"`
}

// RegisterPage renders the registration form.
func (h *RegistrationHandler) RegisterPage(c echo.Context) error {
	return h.pages.render(c, "register.html", "Register", nil)
}

// Register godoc
// @Summary Register a new user
// @Description Verifies the Turnstile token, creates an unverified account and emails a verification link.
// @Tags registration
// @Accept x-www-form-urlencoded
// @Produce json
// @Param full_name formData string true "Full name"
// @Param email formData string true "Email"
// @Param phone formData string true "Phone"
// @Param password formData string true "Password"
// @Param confirm_password formData string true "Password confirmation"
// @Param cf-turnstile-response formData string true "Turnstile token"
// @Success 200 {object} FormResponse
// @Failure 400 {object} FormResponse
// @Failure 409 {object} FormResponse
// @Failure 503 {object} FormResponse
// @Router /register [post]
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, FormResponse{Status: statusError, Message: "invalid request body"})
	}

	in := service.RegisterInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	_, err := h.svc.Register(c.Request().Context(), session.FromContext(c), in, req.BotToken, c.RealIP())
	if err != nil {
		h.logFailure("registration failed", err)
		return formError(c, err, "")
	}

	return c.JSON(http.StatusOK, FormResponse{
		Status:      statusSuccess,
		Message:     "Registration successful. Please check your email to verify your account.",
		RedirectURL: "/confirm",
	})
}

// CheckEmail godoc
// @Summary Check whether an email is registered
// @Tags registration
// @Accept json
// @Produce json
// @Param request body CheckEmailRequest true "Email to check"
// @Success 200 {object} CheckEmailResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /check_email [post]
func (h *RegistrationHandler) CheckEmail(c echo.Context) error {
	var req CheckEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: "email is required",
			Code:  "VALIDATION_ERROR",
		})
	}

	exists, err := h.svc.CheckEmail(c.Request().Context(), req.Email)
	if err != nil {
		h.logFailure("email check failed", err)
		return apiError(err)
	}
	return c.JSON(http.StatusOK, CheckEmailResponse{Exists: exists})
}

// Confirm godoc
// @Summary Confirm an email address
// @Description Redeems the token from the verification link. Without a token, shows the pending address held in the session.
// @Tags registration
// @Produce html
// @Param token query string false "Verification token"
// @Success 200 {string} string "check-your-email page"
// @Success 303 {string} string "redirect to /login or /register"
// @Router /confirm [get]
func (h *RegistrationHandler) Confirm(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = c.FormValue("token")
	}

	res, err := h.svc.Confirm(c.Request().Context(), session.FromContext(c), token)
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		return redirectWithFlash(c, flashDanger, "The verification link has expired. Please register again.", "/register")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return redirectWithFlash(c, flashDanger, "The verification link is invalid.", "/register")
	case err != nil:
		h.logFailure("confirmation failed", err)
		return apiError(err)
	}

	switch res.Outcome {
	case service.ConfirmVerified:
		return redirectWithFlash(c, flashSuccess, "Your email has been verified. You can now log in.", "/login")
	case service.ConfirmPending:
		return h.pages.render(c, "confirm.html", "Confirm your email", func(p *view.Page) {
			p.Email = res.Email
		})
	default:
		return c.Redirect(http.StatusSeeOther, "/register")
	}
}

// ResendVerification godoc
// @Summary Send a new verification link
// @Description Always answers with the same message so it cannot be used to probe accounts.
// @Tags registration
// @Accept x-www-form-urlencoded
// @Produce json
// @Param email formData string false "Email; defaults to the session's pending address"
// @Success 200 {object} FormResponse
// @Failure 400 {object} FormResponse
// @Router /resend_verification [post]
func (h *RegistrationHandler) ResendVerification(c echo.Context) error {
	var req ResendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, FormResponse{Status: statusError, Message: "invalid request body"})
	}

	if err := h.svc.Resend(c.Request().Context(), session.FromContext(c), req.Email); err != nil {
		h.logFailure("resend failed", err)
		return formError(c, err, "")
	}
	return c.JSON(http.StatusOK, FormResponse{
		Status:      statusSuccess,
		Message:     "If the address is registered and not yet verified, a new link is on its way.",
		RedirectURL: "/confirm",
	})
}

func (h *RegistrationHandler) logFailure(msg string, err error) {
	if apperrors.MapErrorToHTTP(err).StatusCode >= http.StatusInternalServerError {
		h.log.Error(msg, zap.Error(err))
		return
	}
	h.log.Debug(msg, zap.Error(err))
}
