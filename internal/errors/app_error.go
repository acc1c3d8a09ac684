// Package errors defines the structured error taxonomy surfaced at the
// webhook request boundary. Only authentication and envelope-shape failures
// become structured responses; everything downstream degrades to fixed
// user-facing fallback text instead.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError represents a structured application error.
type AppError struct {
	// HTTPStatusCode is the HTTP status code to return.
	HTTPStatusCode int `json:"-"`
	// Code is an internal error code string.
	Code string `json:"code"`
	// Message is the user-facing error message.
	Message string `json:"message"`
	// Err is the underlying error (not marshaled to JSON).
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ToJSON returns the JSON byte representation of the error.
func (e *AppError) ToJSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// New creates a new AppError.
func New(statusCode int, code, message string, err error) *AppError {
	return &AppError{
		HTTPStatusCode: statusCode,
		Code:           code,
		Message:        message,
		Err:            err,
	}
}

// Unauthorized builds the authentication-failure error returned when the
// webhook signature is absent or does not match.
func Unauthorized(err error) *AppError {
	return New(http.StatusUnauthorized, "signature_invalid", "webhook signature missing or invalid", err)
}

// BadRequest builds the malformed-input error returned when the webhook
// envelope cannot be parsed.
func BadRequest(err error) *AppError {
	return New(http.StatusBadRequest, "envelope_invalid", "webhook envelope is not valid", err)
}
