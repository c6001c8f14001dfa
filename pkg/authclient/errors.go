package authclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when there is no session to use.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionCleared is returned to callers that waited on a renewal
	// which ended the session.
	ErrSessionCleared = errors.New("session cleared, login required")
)

// Error codes the server puts in the envelope's code field.
const (
	CodeTokenExpired  = "TokenExpired"
	CodeTokenMissing  = "TokenMissing"
	CodeRoleForbidden = "RoleForbidden"
)

// authFailureCodes mean the server no longer honours the session.
// InvalidCredentials is left out: on a live session it only reports a wrong
// current password.
var authFailureCodes = map[string]struct{}{
	"AuthRequired":      {},
	CodeTokenMissing:    {},
	CodeTokenExpired:    {},
	"TokenMalformed":    {},
	"TokenTypeMismatch": {},
	"RefreshMismatch":   {},
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsAuthFailure reports whether the caller has to authenticate again.
func (e *APIError) IsAuthFailure() bool {
	_, ok := authFailureCodes[e.Code]
	return ok
}

// CodeOf returns the server error code carried by err, if any.
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
