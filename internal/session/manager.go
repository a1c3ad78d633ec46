package session

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const contextKey = "session"

// Manager binds sessions to requests through a cookie.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
	log        *zap.Logger
}

// NewManager creates a session manager.
func NewManager(store Store, cookieName string, ttl time.Duration, secure bool, log *zap.Logger) *Manager {
	return &Manager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		log:        log,
	}
}

// Middleware loads the session before the handler runs and persists it right
// before the response headers are written, so the cookie always makes it out.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := m.load(c)
			c.Set(contextKey, sess)

			c.Response().Before(func() {
				m.persist(c, sess)
			})

			return next(c)
		}
	}
}

func (m *Manager) load(c echo.Context) *Session {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return New()
	}

	values, err := m.store.Load(c.Request().Context(), cookie.Value)
	if err != nil {
		m.log.Warn("failed to load session", zap.Error(err))
		return New()
	}
	if values == nil {
		// expired or unknown id, start over with a fresh one
		return New()
	}
	return load(cookie.Value, values)
}

func (m *Manager) persist(c echo.Context, sess *Session) {
	if !sess.modified {
		return
	}
	ctx := c.Request().Context()

	if sess.id != "" && (sess.destroyed || sess.renew) {
		if err := m.store.Delete(ctx, sess.id); err != nil {
			m.log.Warn("failed to delete session", zap.Error(err))
		}
		sess.id = ""
	}

	if len(sess.values) == 0 {
		m.expireCookie(c)
		return
	}

	if sess.id == "" {
		id, err := newID()
		if err != nil {
			m.log.Error("failed to generate session id", zap.Error(err))
			return
		}
		sess.id = id
	}

	if err := m.store.Save(ctx, sess.id, sess.Values(), m.ttl); err != nil {
		m.log.Error("failed to save session", zap.Error(err))
		return
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    sess.id,
		Path:     "/",
		Expires:  time.Now().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) expireCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromContext returns the request session, or a detached empty one when the
// middleware is not installed.
func FromContext(c echo.Context) *Session {
	if sess, ok := c.Get(contextKey).(*Session); ok {
		return sess
	}
	return New()
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
