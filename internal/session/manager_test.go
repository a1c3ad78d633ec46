package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCookie = "sparked_session"

func newTestServer(store Store) *echo.Echo {
	m := NewManager(store, testCookie, time.Hour, false, zap.NewNop())
	e := echo.New()
	e.Use(m.Middleware())

	e.GET("/set", func(c echo.Context) error {
		FromContext(c).Set(KeyUserEmail, c.QueryParam("email"))
		return c.NoContent(http.StatusOK)
	})
	e.GET("/get", func(c echo.Context) error {
		v, _ := FromContext(c).Get(KeyUserEmail)
		return c.String(http.StatusOK, v)
	})
	e.GET("/clear", func(c echo.Context) error {
		FromContext(c).Clear()
		return c.Redirect(http.StatusFound, "/")
	})
	e.GET("/renew", func(c echo.Context) error {
		FromContext(c).Renew()
		return c.NoContent(http.StatusOK)
	})
	return e
}

func do(e *echo.Echo, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func TestManager_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	e := newTestServer(store)

	rec := do(e, "/set?email=jane@x.com", nil)
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, 1, store.Len())

	rec = do(e, "/get", cookie)
	assert.Equal(t, "jane@x.com", rec.Body.String())
	assert.Nil(t, sessionCookie(t, rec), "unmodified session must not reissue the cookie")
}

func TestManager_NoCookieForUntouchedSession(t *testing.T) {
	store := NewMemoryStore()
	e := newTestServer(store)

	rec := do(e, "/get", nil)
	assert.Nil(t, sessionCookie(t, rec))
	assert.Equal(t, 0, store.Len())
}

func TestManager_UnknownCookieStartsFresh(t *testing.T) {
	e := newTestServer(NewMemoryStore())

	rec := do(e, "/get", &http.Cookie{Name: testCookie, Value: "forged"})
	assert.Empty(t, rec.Body.String())
}

func TestManager_ClearDestroysRecord(t *testing.T) {
	store := NewMemoryStore()
	e := newTestServer(store)

	cookie := sessionCookie(t, do(e, "/set?email=jane@x.com", nil))
	require.NotNil(t, cookie)

	rec := do(e, "/clear", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	expired := sessionCookie(t, rec)
	require.NotNil(t, expired)
	assert.Empty(t, expired.Value)
	assert.Equal(t, 0, store.Len())

	rec = do(e, "/get", cookie)
	assert.Empty(t, rec.Body.String())
}

func TestManager_RenewRotatesID(t *testing.T) {
	store := NewMemoryStore()
	e := newTestServer(store)

	first := sessionCookie(t, do(e, "/set?email=jane@x.com", nil))
	require.NotNil(t, first)

	second := sessionCookie(t, do(e, "/renew", first))
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	old, _ := store.Load(context.Background(), first.Value)
	assert.Nil(t, old)
	assert.Equal(t, "jane@x.com", do(e, "/get", second).Body.String())
}

func TestFromContext_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NotNil(t, FromContext(c))
}

// recordingStore keeps the last map handed to Save.
type recordingStore struct {
	*MemoryStore
	saved map[string]string
}

func (s *recordingStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	s.saved = values
	return s.MemoryStore.Save(ctx, id, values, ttl)
}

func TestManager_SavesSnapshotOfValues(t *testing.T) {
	store := &recordingStore{MemoryStore: NewMemoryStore()}
	m := NewManager(store, testCookie, time.Hour, false, zap.NewNop())
	e := echo.New()
	e.Use(m.Middleware())

	var live *Session
	e.GET("/set", func(c echo.Context) error {
		live = FromContext(c)
		live.Set(KeyUserEmail, "jane@x.com")
		return c.NoContent(http.StatusOK)
	})

	rec := do(e, "/set", nil)
	require.NotNil(t, sessionCookie(t, rec))
	require.Equal(t, map[string]string{KeyUserEmail: "jane@x.com"}, store.saved)

	live.Set(KeyUserEmail, "mallory@x.com")
	assert.Equal(t, "jane@x.com", store.saved[KeyUserEmail])
}
