package errors

import (
	"errors"
)

const genericMessage = "An unexpected error occurred"

var statusByType = map[string]int{
	ErrorTypeInvalidRequest:      StatusBadRequest,
	ErrorTypeValidation:          StatusBadRequest,
	ErrorTypeUnauthorized:        StatusUnauthorized,
	ErrorTypeForbidden:           StatusForbidden,
	ErrorTypeNotFound:            StatusNotFound,
	ErrorTypeMethodNotAllowed:    StatusMethodNotAllowed,
	ErrorTypeRequestTimeout:      StatusRequestTimeout,
	ErrorTypeConflict:            StatusConflict,
	ErrorTypePayloadTooLarge:     StatusPayloadTooLarge,
	ErrorTypeRateLimitExceeded:   StatusTooManyRequests,
	ErrorTypeServiceUnavailable:  StatusServiceUnavailable,
	ErrorTypeDatabaseError:       StatusInternalServerError,
	ErrorTypeInternalServerError: StatusInternalServerError,
}

// HTTPStatusCode maps err onto a response status. Anything outside the
// AppError taxonomy is a 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

// GetHumanReadableMessage returns the client-safe message of an AppError.
// Raw driver and runtime errors are never echoed back.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return genericMessage
}
