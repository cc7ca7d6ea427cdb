package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Workflow Errors (WF_1xxx)
	ErrCodeNotCurrentApprover         ErrorCode = "WF_1001"
	ErrCodeInvalidTransition          ErrorCode = "WF_1002"
	ErrCodeChainExhaustedUnexpectedly ErrorCode = "WF_1003"
	ErrCodeConcurrentModification     ErrorCode = "WF_1004"
	ErrCodeNotTravelCoordinator       ErrorCode = "WF_1005"

	// Directory Errors (DIR_2xxx)
	ErrCodeEmployeeNotFound      ErrorCode = "DIR_2001"
	ErrCodeDirectoryLookupFailed ErrorCode = "DIR_2002"

	// Request Errors (REQ_3xxx)
	ErrCodeRequestNotFound ErrorCode = "REQ_3001"

	// Validation Errors (VALID_4xxx)
	ErrCodeInvalidRequest ErrorCode = "VALID_4001"

	// Authentication Errors (AUTH_5xxx)
	ErrCodeInvalidCredentials ErrorCode = "AUTH_5001"
	ErrCodeInvalidToken       ErrorCode = "AUTH_5002"
	ErrCodeForbidden          ErrorCode = "AUTH_5003"

	// Rate Limiting Errors (RATE_6xxx)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_6001"

	// Database Errors (DB_7xxx)
	ErrCodeDatabaseError ErrorCode = "DB_7001"

	// Server Errors (SERVER_8xxx)
	ErrCodeInternalServerError ErrorCode = "SERVER_8001"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code, so callers
// can match with errors.Is(err, apperror.ErrNotCurrentApprover("")).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Workflow errors

// ErrNotCurrentApprover names the approver the request is actually waiting for.
func ErrNotCurrentApprover(expected string) *AppError {
	return NewAppError(ErrCodeNotCurrentApprover,
		fmt.Sprintf("You are not the current approver, waiting for %s", expected), "", nil)
}

func ErrInvalidTransition(details string) *AppError {
	return NewAppError(ErrCodeInvalidTransition, "Invalid status transition", details, nil)
}

func ErrChainExhaustedUnexpectedly(details string) *AppError {
	return NewAppError(ErrCodeChainExhaustedUnexpectedly, "Approval chain exhausted while request is still pending", details, nil)
}

func ErrConcurrentModification(requestID string) *AppError {
	return NewAppError(ErrCodeConcurrentModification, "Request was modified concurrently", fmt.Sprintf("Request ID: %s", requestID), nil)
}

func ErrNotTravelCoordinator(actor string) *AppError {
	return NewAppError(ErrCodeNotTravelCoordinator, "Only the travel coordinator can take this action", fmt.Sprintf("Actor: %s", actor), nil)
}

// Directory errors

func ErrEmployeeNotFound(email string) *AppError {
	return NewAppError(ErrCodeEmployeeNotFound, "Employee profile not found", fmt.Sprintf("Email: %s", email), nil)
}

func ErrDirectoryLookupFailed(email string, cause error) *AppError {
	return NewAppError(ErrCodeDirectoryLookupFailed, "Employee directory lookup failed", fmt.Sprintf("Email: %s", email), cause)
}

// Request errors

func ErrRequestNotFound(requestID string) *AppError {
	return NewAppError(ErrCodeRequestNotFound, "Travel request not found", fmt.Sprintf("Request ID: %s", requestID), nil)
}

// Validation errors

func ErrInvalidRequest(details string) *AppError {
	return NewAppError(ErrCodeInvalidRequest, "Invalid request", details, nil)
}

func ErrMissingField(field string) *AppError {
	return NewAppError(ErrCodeInvalidRequest, "Missing required field", fmt.Sprintf("Field: %s", field), nil)
}

// Authentication errors

func ErrInvalidCredentials(details string) *AppError {
	return NewAppError(ErrCodeInvalidCredentials, "Invalid email or password", details, nil)
}

func ErrInvalidToken(details string) *AppError {
	return NewAppError(ErrCodeInvalidToken, "Invalid token", details, nil)
}

func ErrForbidden(details string) *AppError {
	return NewAppError(ErrCodeForbidden, "Access denied", details, nil)
}

// Rate limiting errors

func ErrRateLimitExceeded(attempts int, window string) *AppError {
	return NewAppError(ErrCodeRateLimitExceeded, "Too many requests", fmt.Sprintf("Attempts: %d, Window: %s", attempts, window), nil)
}

// Database errors

func ErrDatabaseError(operation string, cause error) *AppError {
	return NewAppError(ErrCodeDatabaseError, "Database operation failed", fmt.Sprintf("Operation: %s", operation), cause)
}

// Server errors

func ErrInternalServerError(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternalServerError, "Internal server error", details, cause)
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus maps an error to a transport status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case ErrCodeNotCurrentApprover, ErrCodeNotTravelCoordinator, ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeInvalidTransition, ErrCodeConcurrentModification:
		return http.StatusConflict
	case ErrCodeEmployeeNotFound, ErrCodeRequestNotFound:
		return http.StatusNotFound
	case ErrCodeDirectoryLookupFailed, ErrCodeDatabaseError:
		return http.StatusServiceUnavailable
	}

	prefix, _, _ := strings.Cut(string(appErr.Code), "_")
	switch prefix {
	case "VALID":
		return http.StatusBadRequest
	case "AUTH":
		return http.StatusUnauthorized
	case "RATE":
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the error payload returned to API clients
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *AppError, traceID string) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
		TraceID: traceID,
	}
}
