package response

import (
	"encoding/json"
	"net/http"

	domainerror "github.com/techstore/storefront/domain/error"
)

// Envelope is the body of every JSON answer.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	User    interface{} `json:"user,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, Envelope{Success: true, Message: message, Data: data})
}

// WithUser answers with the principal in the top-level user field.
func WithUser(w http.ResponseWriter, statusCode int, message string, user interface{}) {
	WriteJSON(w, statusCode, Envelope{Success: true, Message: message, User: user})
}

func Error(w http.ResponseWriter, statusCode int, code domainerror.ErrorCode, message string) {
	WriteJSON(w, statusCode, Envelope{Success: false, Message: message, Code: string(code)})
}

// FromError writes err with its mapped status. Input problems carry their
// details; infrastructure faults never do.
func FromError(w http.ResponseWriter, err error) {
	appErr := domainerror.AsAppError(err)
	message := appErr.Message
	if appErr.Code == domainerror.ErrCodeInvalidInput && appErr.Details != "" {
		message = appErr.Details
	}
	Error(w, appErr.HTTPStatus(), appErr.Code, message)
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, domainerror.ErrCodeInvalidInput, message)
}

func InternalServerError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, domainerror.ErrCodeInternal, "Internal server error")
}
