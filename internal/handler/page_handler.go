package handler

import (
	"github.com/labstack/echo/v4"

	"sparked/internal/config"
)

// PageHandler serves static pages.
type PageHandler struct {
	pages pageRenderer
}

func NewPageHandler(cfg *config.Config) *PageHandler {
	return &PageHandler{pages: newPageRenderer(cfg)}
}

// Index renders the landing page.
func (h *PageHandler) Index(c echo.Context) error {
	return h.pages.render(c, "index.html", "Home", nil)
}
