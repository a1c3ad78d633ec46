package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "sparked/internal/errors"
	"sparked/internal/model"
	"sparked/internal/service"
	"sparked/internal/session"
)

func registrationServer(t *testing.T, svc *MockVerificationService) *testServer {
	s := newTestServer(t)
	h := NewRegistrationHandler(svc, testConfig(), zap.NewNop())
	s.e.GET("/register", h.RegisterPage)
	s.e.POST("/register", h.Register)
	s.e.POST("/check_email", h.CheckEmail)
	s.e.GET("/confirm", h.Confirm)
	s.e.POST("/confirm", h.Confirm)
	s.e.POST("/resend_verification", h.ResendVerification)

	a := NewAuthHandler(new(MockAuthService), testConfig(), zap.NewNop())
	s.e.GET("/login", a.LoginPage)
	return s
}

func registrationForm() url.Values {
	return url.Values{
		"full_name":             {"Jane Doe"},
		"email":                 {"jane@x.com"},
		"phone":                 {"5551234567"},
		"password":              {"Secret1!"},
		"confirm_password":      {"Secret1!"},
		"cf-turnstile-response": {"bot-token"},
	}
}

func TestRegistrationHandler_Register(t *testing.T) {
	expectedInput := service.RegisterInput{
		FullName:        "Jane Doe",
		Email:           "jane@x.com",
		Phone:           "5551234567",
		Password:        "Secret1!",
		ConfirmPassword: "Secret1!",
	}

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedBody   FormResponse
	}{
		{
			name:           "success",
			expectedStatus: http.StatusOK,
			expectedBody: FormResponse{
				Status:      "success",
				Message:     "Registration successful. Please check your email to verify your account.",
				RedirectURL: "/confirm",
			},
		},
		{
			name:           "bot check failed",
			serviceErr:     apperrors.ErrBotCheckFailed,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   FormResponse{Status: "error", Message: "bot verification failed, please try again"},
		},
		{
			name:           "duplicate email",
			serviceErr:     apperrors.ErrDuplicateEmail,
			expectedStatus: http.StatusConflict,
			expectedBody:   FormResponse{Status: "error", Message: apperrors.ErrDuplicateEmail.Error()},
		},
		{
			name:           "validation",
			serviceErr:     apperrors.NewValidationError(map[string]string{"email": "enter a valid email address"}),
			expectedStatus: http.StatusBadRequest,
			expectedBody: FormResponse{
				Status:  "error",
				Message: "please correct the highlighted fields",
				Errors:  map[string]string{"email": "enter a valid email address"},
			},
		},
		{
			name:           "store unavailable is not leaked",
			serviceErr:     errors.Join(apperrors.ErrStoreUnavailable, errors.New("dial tcp 10.0.0.5:3306")),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   FormResponse{Status: "error", Message: "service temporarily unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockVerificationService)
			call := svc.On("Register", mock.Anything, mock.AnythingOfType("*session.Session"), expectedInput, "bot-token", mock.Anything)
			if tt.serviceErr != nil {
				call.Return(nil, tt.serviceErr)
			} else {
				call.Run(func(args mock.Arguments) {
					args.Get(1).(*session.Session).Set(session.KeyPendingEmail, "jane@x.com")
				}).Return(&model.User{ID: 1, Email: "jane@x.com"}, nil)
			}

			s := registrationServer(t, svc)
			rec := s.do(http.MethodPost, "/register", registrationForm(), nil)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body FormResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedBody, body)

			if tt.serviceErr == nil {
				assert.NotNil(t, sessionCookie(rec), "pending email is persisted")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRegistrationHandler_RegisterPage(t *testing.T) {
	s := registrationServer(t, new(MockVerificationService))
	rec := s.do(http.MethodGet, "/register", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-sitekey="site-key"`)
}

func TestRegistrationHandler_CheckEmail(t *testing.T) {
	svc := new(MockVerificationService)
	svc.On("CheckEmail", mock.Anything, "jane@x.com").Return(true, nil)
	svc.On("CheckEmail", mock.Anything, "new@x.com").Return(false, nil)
	s := registrationServer(t, svc)

	rec := s.doJSON(http.MethodPost, "/check_email", `{"email":"jane@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":true}`, rec.Body.String())

	rec = s.doJSON(http.MethodPost, "/check_email", `{"email":"new@x.com"}`)
	assert.JSONEq(t, `{"exists":false}`, rec.Body.String())

	rec = s.doJSON(http.MethodPost, "/check_email", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationHandler_Confirm(t *testing.T) {
	tests := []struct {
		name             string
		token            string
		result           service.ConfirmResult
		err              error
		expectedStatus   int
		expectedLocation string
		expectedFlash    string
		expectedBody     string
	}{
		{
			name:             "verified",
			token:            "good",
			result:           service.ConfirmResult{Outcome: service.ConfirmVerified, Email: "jane@x.com"},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/login",
			expectedFlash:    "Your email has been verified. You can now log in.",
		},
		{
			name:             "expired",
			token:            "old",
			err:              apperrors.ErrTokenExpired,
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/register",
			expectedFlash:    "The verification link has expired. Please register again.",
		},
		{
			name:             "invalid",
			token:            "bad",
			err:              apperrors.ErrTokenInvalid,
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/register",
			expectedFlash:    "The verification link is invalid.",
		},
		{
			name:           "pending",
			result:         service.ConfirmResult{Outcome: service.ConfirmPending, Email: "jane@x.com"},
			expectedStatus: http.StatusOK,
			expectedBody:   "jane@x.com",
		},
		{
			name:             "no context",
			result:           service.ConfirmResult{Outcome: service.ConfirmNoContext},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/register",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockVerificationService)
			svc.On("Confirm", mock.Anything, mock.Anything, tt.token).Return(tt.result, tt.err)
			s := registrationServer(t, svc)

			target := "/confirm"
			if tt.token != "" {
				target += "?token=" + url.QueryEscape(tt.token)
			}
			rec := s.do(http.MethodGet, target, nil, nil)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, rec.Header().Get("Location"))
			}
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			if tt.expectedFlash != "" {
				cookie := sessionCookie(rec)
				require.NotNil(t, cookie)
				next := s.do(http.MethodGet, tt.expectedLocation, nil, cookie)
				assert.Contains(t, next.Body.String(), tt.expectedFlash)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRegistrationHandler_ConfirmAcceptsFormToken(t *testing.T) {
	svc := new(MockVerificationService)
	svc.On("Confirm", mock.Anything, mock.Anything, "posted").
		Return(service.ConfirmResult{Outcome: service.ConfirmVerified}, nil)
	s := registrationServer(t, svc)

	rec := s.do(http.MethodPost, "/confirm", url.Values{"token": {"posted"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	svc.AssertExpectations(t)
}

func TestRegistrationHandler_ResendVerification(t *testing.T) {
	svc := new(MockVerificationService)
	svc.On("Resend", mock.Anything, mock.Anything, "jane@x.com").Return(nil)
	s := registrationServer(t, svc)

	rec := s.do(http.MethodPost, "/resend_verification", url.Values{"email": {"jane@x.com"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body FormResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	svc.AssertExpectations(t)
}
