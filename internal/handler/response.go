package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"sparked/internal/config"
	apperrors "sparked/internal/errors"
	"sparked/internal/model"
	"sparked/internal/session"
	"sparked/internal/view"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	flashSuccess = "success"
	flashInfo    = "info"
	flashDanger  = "danger"
	flashWarning = "warning"
)

// FormResponse is the JSON payload returned by form posts.
type FormResponse struct {
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	Errors      map[string]string `json:"errors,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// CheckEmailResponse reports whether an address is registered.
type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}

// formError writes err as a FormResponse with the mapped status code.
func formError(c echo.Context, err error, redirect string) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return c.JSON(httpErr.StatusCode, FormResponse{
		Status:      statusError,
		Message:     httpErr.Message,
		Errors:      httpErr.Fields,
		RedirectURL: redirect,
	})
}

// apiError converts err into an echo error carrying an ErrorResponse.
func apiError(err error) *echo.HTTPError {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// pageRenderer builds the common view data for a request.
type pageRenderer struct {
	siteKey string
}

func newPageRenderer(cfg *config.Config) pageRenderer {
	return pageRenderer{siteKey: cfg.Turnstile.SiteKey}
}

func (p pageRenderer) render(c echo.Context, name, title string, fill func(*view.Page)) error {
	page := view.Page{Title: title, SiteKey: p.siteKey}
	if token, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		page.CSRFToken = token
	}
	if flash, ok := session.FromContext(c).PopFlash(); ok {
		page.Flash = &flash
	}
	if fill != nil {
		fill(&page)
	}
	return c.Render(http.StatusOK, name, page)
}

func redirectWithFlash(c echo.Context, category, message, to string) error {
	session.FromContext(c).SetFlash(category, message)
	return c.Redirect(http.StatusSeeOther, to)
}

func withUser(u *model.User) func(*view.Page) {
	return func(p *view.Page) { p.User = u }
}
