package errors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusConflict            = 409
	StatusPayloadTooLarge     = 413
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

const (
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeValidation          = "VALIDATION_ERROR"
	ErrorTypeUnauthorized        = "UNAUTHORIZED"
	ErrorTypeForbidden           = "FORBIDDEN"
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrorTypeRequestTimeout      = "REQUEST_TIMEOUT"
	ErrorTypeConflict            = "CONFLICT"
	ErrorTypePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrorTypeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
)

// AppError is an error with a client-safe Message. Err keeps the cause for
// logs and errors.Is/As and is never rendered to clients.
type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

// NewInvalidRequestError is for bodies that cannot be decoded at all.
func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

// NewValidationError carries every violated input rule in one message.
func NewValidationError(message string, err error) *AppError {
	return NewAppError(ErrorTypeValidation, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, err)
}

func NewForbiddenError(message string, err error) *AppError {
	return NewAppError(ErrorTypeForbidden, message, err)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorTypeNotFound, message, nil)
}

func NewMethodNotAllowedError(message string) *AppError {
	return NewAppError(ErrorTypeMethodNotAllowed, message, nil)
}

func NewRequestTimeoutError(message string, err error) *AppError {
	return NewAppError(ErrorTypeRequestTimeout, message, err)
}

func NewPayloadTooLargeError(message string) *AppError {
	return NewAppError(ErrorTypePayloadTooLarge, message, nil)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

func NewServiceUnavailableError(message string, err error) *AppError {
	return NewAppError(ErrorTypeServiceUnavailable, message, err)
}

// IsInfrastructureError reports whether err came from a backing service
// (store, cache) rather than from the caller's input.
func IsInfrastructureError(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeDatabaseError, ErrorTypeServiceUnavailable, ErrorTypeRequestTimeout:
		return true
	default:
		return false
	}
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}

var duplicateKeyMarkers = []string{
	"duplicate key",
	"e11000",
	"unique constraint",
}

// IsDuplicateKeyError recognises unique-index violations from drivers that do
// not translate them (pq, sqlite, mongo write exceptions).
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if GetErrorType(err) == ErrorTypeConflict {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
