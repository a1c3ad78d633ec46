package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"sparked/internal/config"
	"sparked/internal/handler"
	"sparked/internal/service"
	"sparked/internal/session"
)

// Handlers groups everything Register mounts.
type Handlers struct {
	Page         *handler.PageHandler
	Registration *handler.RegistrationHandler
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, sessions *session.Manager, h Handlers, log *zap.Logger) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(noCache)
	e.Use(sessions.Middleware())

	// Add validator
	e.Validator = &CustomValidator{validator: service.NewValidator()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	site := e.Group("")
	if cfg.Server.CSRFEnabled {
		site.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:X-CSRF-Token,form:csrf_token",
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   cfg.Server.SecureCookie,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}

	site.GET("/", h.Page.Index)

	site.GET("/register", h.Registration.RegisterPage)
	site.POST("/register", h.Registration.Register)
	site.POST("/check_email", h.Registration.CheckEmail)
	site.GET("/confirm", h.Registration.Confirm)
	site.POST("/confirm", h.Registration.Confirm)
	site.POST("/resend_verification", h.Registration.ResendVerification)

	site.GET("/login", h.Auth.LoginPage)
	site.POST("/login", h.Auth.Login)
	site.GET("/dashboard", h.Auth.Dashboard)
	site.GET("/logout", h.Auth.Logout)

	site.GET("/admin/users", h.User.ListUsers)
}

// noCache keeps authenticated pages out of browser and proxy caches.
func noCache(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Response().Header()
		header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		header.Set("Pragma", "no-cache")
		header.Set("Expires", "0")
		return next(c)
	}
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
