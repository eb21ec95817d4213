package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so that clones and wraps of a
// predefined error satisfy errors.Is against the original.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Internal wraps err as an opaque server error carrying an operator-facing message.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInvalidPassword    = New("INVALID_PASSWORD", http.StatusUnauthorized, "current password is incorrect")
	ErrInvalidToken       = New("INVALID_TOKEN", http.StatusUnauthorized, "token is invalid or expired")
	ErrTokenRevoked       = New("TOKEN_REVOKED", http.StatusUnauthorized, "refresh token has been revoked")
	ErrTokenExpired       = New("TOKEN_EXPIRED", http.StatusUnauthorized, "refresh token has expired")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUserNotFound       = New("USER_NOT_FOUND", http.StatusNotFound, "user not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrEmailTaken         = New("EMAIL_TAKEN", http.StatusConflict, "a user with this email already exists")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnprocessable      = New("UNPROCESSABLE_ENTITY", http.StatusUnprocessableEntity, "validation failed")
	ErrRateLimited        = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrInvalidName        = New("INVALID_NAME", http.StatusUnprocessableEntity, "name must not be blank")
	ErrInvalidEmail       = New("INVALID_EMAIL", http.StatusUnprocessableEntity, "email address is invalid")
	ErrInvalidUserID      = New("INVALID_USER_ID", http.StatusUnprocessableEntity, "user id is invalid")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "An unexpected error occurred")
)

// FromError normalises any error into an *Error. Errors that are not already
// typed are reported with the generic internal message so that their text
// never reaches a client.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Unprocessable builds a 422 error with a specific machine-readable code.
func Unprocessable(code, message string) *Error {
	return New(code, ErrUnprocessable.Status, message)
}

// Public returns the client-safe view of err: internal errors lose their
// message and wrapped cause.
func Public(err *Error) *Error {
	if err == nil {
		return nil
	}
	if err.Status >= http.StatusInternalServerError {
		return New(ErrInternal.Code, err.Status, ErrInternal.Message)
	}
	return &Error{Code: err.Code, Status: err.Status, Message: err.Message}
}
