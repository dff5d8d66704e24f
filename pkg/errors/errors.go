// Package errors provides structured error handling for userhub.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Authentication/Authorization errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"

	// System errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Configuration errors
	ErrCodeConfigError   ErrorCode = "CONFIG_ERROR"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// ServiceError represents a structured error in userhub
type ServiceError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID adds a request ID to the error
func (e *ServiceError) WithRequestID(requestID string) *ServiceError {
	e.RequestID = requestID
	return e
}

// HTTPStatus maps the error code to an HTTP status code. Authentication
// failures map to 401, trust/authorization failures to 403, so the API
// layer never has to inspect messages.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new service error
func New(code ErrorCode, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewWithCause creates a new service error with a cause
func NewWithCause(code ErrorCode, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation error constructors

func NewValidationError(message string) *ServiceError {
	return New(ErrCodeValidation, message)
}

func NewInvalidInputError(message string) *ServiceError {
	return New(ErrCodeInvalidInput, message)
}

func NewMissingFieldError(field string) *ServiceError {
	return New(ErrCodeMissingField,
		fmt.Sprintf("missing required field: %s", field)).WithDetail("field", field)
}

// Authentication/Authorization error constructors

func NewUnauthorizedError(message string) *ServiceError {
	return New(ErrCodeUnauthorized, message)
}

func NewForbiddenError(message string) *ServiceError {
	return New(ErrCodeForbidden, message)
}

func NewTokenExpiredError() *ServiceError {
	return New(ErrCodeTokenExpired, "token has expired")
}

func NewInvalidTokenError() *ServiceError {
	return New(ErrCodeInvalidToken, "invalid token")
}

// Resource error constructors

func NewNotFoundError(resource string) *ServiceError {
	return New(ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource)).WithDetail("resource", resource)
}

func NewAlreadyExistsError(resource string) *ServiceError {
	return New(ErrCodeAlreadyExists,
		fmt.Sprintf("%s already exists", resource)).WithDetail("resource", resource)
}

func NewConflictError(message string) *ServiceError {
	return New(ErrCodeConflict, message)
}

// System error constructors

func NewInternalError(message string) *ServiceError {
	return New(ErrCodeInternal, message)
}

func NewInternalErrorWithCause(message string, cause error) *ServiceError {
	return NewWithCause(ErrCodeInternal, message, cause)
}

func NewDatabaseError(message string, cause error) *ServiceError {
	return NewWithCause(ErrCodeDatabaseError, message, cause)
}

// Configuration error constructors

func NewConfigError(message string) *ServiceError {
	return New(ErrCodeConfigError, message)
}

func NewConfigInvalidError(message string) *ServiceError {
	return New(ErrCodeConfigInvalid, message)
}

// IsServiceError checks if an error is a ServiceError
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}

// Wrap wraps an error as a ServiceError
func Wrap(err error, code ErrorCode, message string) *ServiceError {
	return NewWithCause(code, message, err)
}
