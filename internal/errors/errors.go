package errors

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrBotCheckFailed is returned when the Turnstile challenge did not pass or could not be checked.
	ErrBotCheckFailed = errors.New("bot verification failed")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email is already registered")
	// ErrDuplicatePhone is returned when the phone number is already registered.
	ErrDuplicatePhone = errors.New("phone number is already registered")
	// ErrDuplicateName is returned when the full name is already registered.
	ErrDuplicateName = errors.New("full name is already registered")
	// ErrTokenExpired is returned when a verification link is older than its max age.
	ErrTokenExpired = errors.New("verification link has expired")
	// ErrTokenInvalid is returned when a verification link fails signature or shape checks.
	ErrTokenInvalid = errors.New("verification link is invalid")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMissingCredentials is returned when email or password was not supplied.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrEmailNotVerified is returned when the credentials match an unverified account.
	ErrEmailNotVerified = errors.New("email address is not verified")
	// ErrAccountInactive is returned when the account has been disabled.
	ErrAccountInactive = errors.New("account is not active")
	// ErrSessionRequired is returned when a page needs a logged-in session.
	ErrSessionRequired = errors.New("login required")
	// ErrForbidden is returned when the session user lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotificationFailure marks a mail that could not be delivered. It is logged, never returned to users.
	ErrNotificationFailure = errors.New("notification delivery failed")
	// ErrStoreUnavailable wraps any storage failure that is not a constraint or not-found case.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError carries per-field messages for user-correctable input problems.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError from a field->message map.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything unrecognised,
// storage failures included, becomes an opaque 500.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httpErr := NewHTTPError(http.StatusBadRequest, "please correct the highlighted fields", "VALIDATION_ERROR")
		httpErr.Fields = verr.Fields
		return httpErr
	}

	switch {
	case errors.Is(err, ErrBotCheckFailed):
		return NewHTTPError(http.StatusBadRequest, "bot verification failed, please try again", "BOT_CHECK_FAILED")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusConflict, ErrDuplicateEmail.Error(), "DUPLICATE_EMAIL")
	case errors.Is(err, ErrDuplicatePhone):
		return NewHTTPError(http.StatusConflict, ErrDuplicatePhone.Error(), "DUPLICATE_PHONE")
	case errors.Is(err, ErrDuplicateName):
		return NewHTTPError(http.StatusConflict, ErrDuplicateName.Error(), "DUPLICATE_NAME")
	case errors.Is(err, ErrTokenExpired):
		return NewHTTPError(http.StatusGone, ErrTokenExpired.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, ErrTokenInvalid):
		return NewHTTPError(http.StatusBadRequest, ErrTokenInvalid.Error(), "TOKEN_INVALID")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrMissingCredentials):
		return NewHTTPError(http.StatusBadRequest, ErrMissingCredentials.Error(), "MISSING_CREDENTIALS")
	case errors.Is(err, ErrEmailNotVerified):
		return NewHTTPError(http.StatusForbidden, "please verify your email address before logging in", "EMAIL_NOT_VERIFIED")
	case errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusForbidden, ErrAccountInactive.Error(), "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrSessionRequired):
		return NewHTTPError(http.StatusUnauthorized, ErrSessionRequired.Error(), "LOGIN_REQUIRED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrStoreUnavailable):
		return NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable", "STORE_UNAVAILABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
