package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sparked/internal/config"
	"sparked/internal/model"
	"sparked/internal/service"
	"sparked/internal/session"
	"sparked/internal/view"
)

const testCookie = "sparked_session"

// MockVerificationService is a mock implementation of VerificationService.
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Register(ctx context.Context, sess *session.Session, in service.RegisterInput, botToken, remoteIP string) (*model.User, error) {
	args := m.Called(ctx, sess, in, botToken, remoteIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockVerificationService) Confirm(ctx context.Context, sess *session.Session, token string) (service.ConfirmResult, error) {
	args := m.Called(ctx, sess, token)
	return args.Get(0).(service.ConfirmResult), args.Error(1)
}

func (m *MockVerificationService) CheckEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationService) Resend(ctx context.Context, sess *session.Session, email string) error {
	args := m.Called(ctx, sess, email)
	return args.Error(0)
}

// MockAuthService is a mock implementation of AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, sess *session.Session, email, password, botToken, remoteIP string) (*model.User, error) {
	args := m.Called(ctx, sess, email, password, botToken, remoteIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) RequireSession(ctx context.Context, sess *session.Session) (*model.User, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Logout(sess *session.Session) {
	m.Called(sess)
	sess.Clear()
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context, sess *session.Session) ([]model.User, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

type testValidator struct{ v interface{ Struct(interface{}) error } }

func (tv testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

// testServer mounts a single route behind the session middleware.
type testServer struct {
	e     *echo.Echo
	store *session.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Validator = testValidator{v: service.NewValidator()}

	store := session.NewMemoryStore()
	e.Use(session.NewManager(store, testCookie, time.Hour, false, zap.NewNop()).Middleware())
	return &testServer{e: e, store: store}
}

func testConfig() *config.Config {
	return &config.Config{Turnstile: config.TurnstileConfig{SiteKey: "site-key"}}
}

// seed stores values under a fresh session id and returns its cookie.
func (s *testServer) seed(t *testing.T, values map[string]string) *http.Cookie {
	t.Helper()
	id := "seeded-" + t.Name()
	require.NoError(t, s.store.Save(context.Background(), id, values, time.Hour))
	return &http.Cookie{Name: testCookie, Value: id}
}

func (s *testServer) do(method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}
