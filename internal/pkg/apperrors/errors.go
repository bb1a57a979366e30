package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrValidation  ErrorType = "VALIDATION_ERROR"
	ErrDomain      ErrorType = "DOMAIN_ERROR"
	ErrEncoding    ErrorType = "ENCODING_ERROR"
	ErrSigning     ErrorType = "SIGNING_ERROR"
	ErrAuthFailed  ErrorType = "AUTH_FAILED"
	ErrRateLimited ErrorType = "RATE_LIMITED"
	ErrReadOnly    ErrorType = "READ_ONLY"
	ErrInProgress  ErrorType = "REQUEST_IN_PROGRESS"
	ErrInternal    ErrorType = "INTERNAL_ERROR"
	ErrNotFound    ErrorType = "NOT_FOUND"
	ErrUpstream    ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

// NewValidation reports malformed or out-of-range input for a named field.
func NewValidation(field, msg string) *AppError {
	e := New(ErrValidation, msg, nil)
	e.Field = field
	return e
}

func NewDomain(field, msg string) *AppError {
	e := New(ErrDomain, msg, nil)
	e.Field = field
	return e
}

func NewEncoding(field, msg string, cause error) *AppError {
	e := New(ErrEncoding, msg, cause)
	e.Field = field
	return e
}

func NewSigning(msg string, cause error) *AppError {
	return New(ErrSigning, msg, cause)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrValidation, msg, nil)
}

func NewUpstream(msg string, cause error) *AppError {
	return New(ErrUpstream, msg, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrValidation, ErrDomain, ErrEncoding:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrReadOnly:
		return http.StatusForbidden
	case ErrInProgress:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrValidation:
		return "Correct the field and resubmit."
	case ErrDomain:
		return "Odds must be strictly between 0 and 1."
	case ErrEncoding:
		return "Check address (20 bytes) and hash (32 bytes) widths."
	case ErrSigning:
		return "Check the configured signing key."
	case ErrAuthFailed:
		return "Check the gateway API key."
	case ErrRateLimited, ErrInProgress:
		return "Retry the request later."
	default:
		return ""
	}
}
