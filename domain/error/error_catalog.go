package error

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable, client-facing name of a failure.
type ErrorCode string

const (
	// Authentication
	ErrCodeInvalidCredentials ErrorCode = "InvalidCredentials"
	ErrCodeAuthRequired       ErrorCode = "AuthRequired"
	ErrCodeTokenMissing       ErrorCode = "TokenMissing"
	ErrCodeTokenExpired       ErrorCode = "TokenExpired"
	ErrCodeTokenMalformed     ErrorCode = "TokenMalformed"
	ErrCodeTokenTypeMismatch  ErrorCode = "TokenTypeMismatch"
	ErrCodeRefreshMismatch    ErrorCode = "RefreshMismatch"

	// Authorization
	ErrCodeRoleForbidden ErrorCode = "RoleForbidden"

	// Input
	ErrCodeInvalidInput            ErrorCode = "InvalidInput"
	ErrCodeIdentifierConflict      ErrorCode = "IdentifierConflict"
	ErrCodeHumanVerificationFailed ErrorCode = "HumanVerificationFailed"
	ErrCodeNotFound                ErrorCode = "NotFound"

	// Rate limiting
	ErrCodeRateLimited ErrorCode = "RateLimited"

	// Infrastructure
	ErrCodeUpstreamUnavailable ErrorCode = "UpstreamUnavailable"
	ErrCodeInternal            ErrorCode = "Internal"
)

var httpStatus = map[ErrorCode]int{
	ErrCodeInvalidCredentials:      http.StatusUnauthorized,
	ErrCodeAuthRequired:            http.StatusUnauthorized,
	ErrCodeTokenMissing:            http.StatusUnauthorized,
	ErrCodeTokenExpired:            http.StatusUnauthorized,
	ErrCodeTokenMalformed:          http.StatusUnauthorized,
	ErrCodeTokenTypeMismatch:       http.StatusForbidden,
	ErrCodeRefreshMismatch:         http.StatusForbidden,
	ErrCodeRoleForbidden:           http.StatusForbidden,
	ErrCodeInvalidInput:            http.StatusBadRequest,
	ErrCodeIdentifierConflict:      http.StatusConflict,
	ErrCodeHumanVerificationFailed: http.StatusBadRequest,
	ErrCodeNotFound:                http.StatusNotFound,
	ErrCodeRateLimited:             http.StatusTooManyRequests,
	ErrCodeUpstreamUnavailable:     http.StatusServiceUnavailable,
	ErrCodeInternal:                http.StatusInternalServerError,
}

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so errors.Is(err, ErrTokenExpired()) works.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// HTTPStatus returns the status code the HTTP layer answers with.
func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Authentication errors

// ErrInvalidCredentials is returned for an unknown identifier and a wrong
// secret alike.
func ErrInvalidCredentials() *AppError {
	return NewAppError(ErrCodeInvalidCredentials, "Invalid username/email or password", "", nil)
}

func ErrAuthRequired() *AppError {
	return NewAppError(ErrCodeAuthRequired, "Authentication required", "", nil)
}

func ErrTokenMissing() *AppError {
	return NewAppError(ErrCodeTokenMissing, "Authentication token is missing", "", nil)
}

func ErrTokenExpired() *AppError {
	return NewAppError(ErrCodeTokenExpired, "Token has expired", "", nil)
}

func ErrTokenMalformed() *AppError {
	return NewAppError(ErrCodeTokenMalformed, "Invalid token", "", nil)
}

func ErrTokenTypeMismatch() *AppError {
	return NewAppError(ErrCodeTokenTypeMismatch, "Invalid token", "", nil)
}

func ErrRefreshMismatch() *AppError {
	return NewAppError(ErrCodeRefreshMismatch, "Session is no longer valid, please login again", "", nil)
}

// Authorization errors

func ErrRoleForbidden() *AppError {
	return NewAppError(ErrCodeRoleForbidden, "Insufficient privileges", "", nil)
}

// Input errors

func ErrInvalidInput(details string) *AppError {
	return NewAppError(ErrCodeInvalidInput, "Invalid input", details, nil)
}

func ErrIdentifierConflict() *AppError {
	return NewAppError(ErrCodeIdentifierConflict, "User with this email or username already exists", "", nil)
}

func ErrHumanVerificationFailed() *AppError {
	return NewAppError(ErrCodeHumanVerificationFailed, "Human verification failed", "", nil)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), "", nil)
}

func ErrRateLimited() *AppError {
	return NewAppError(ErrCodeRateLimited, "Too many requests. Please try again later.", "", nil)
}

// Infrastructure errors

// ErrUpstreamUnavailable hides the cause from callers; it is kept for logs.
func ErrUpstreamUnavailable(operation string, cause error) *AppError {
	return NewAppError(ErrCodeUpstreamUnavailable, "Service temporarily unavailable", fmt.Sprintf("Operation: %s", operation), cause)
}

func ErrInternal(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternal, "Internal server error", details, cause)
}

// AsAppError extracts an AppError, wrapping anything else as Internal.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal("", err)
}

// CodeOf returns the code of err, or empty when err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// GetHTTPStatusCode maps any error to the status the API answers with.
func GetHTTPStatusCode(err error) int {
	return AsAppError(err).HTTPStatus()
}

// IsAuthFailure reports whether the error means the caller must authenticate
// again (as opposed to lacking privileges or hitting an infrastructure fault).
func IsAuthFailure(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidCredentials, ErrCodeAuthRequired, ErrCodeTokenMissing,
		ErrCodeTokenExpired, ErrCodeTokenMalformed, ErrCodeTokenTypeMismatch,
		ErrCodeRefreshMismatch:
		return true
	}
	return false
}
