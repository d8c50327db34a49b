// internal/apierr/errors.go
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a gateway-facing failure class
type Code string

const (
	CodeMissingToken        Code = "MISSING_TOKEN"
	CodeInvalidToken        Code = "INVALID_TOKEN"
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodePayloadTooLarge     Code = "PAYLOAD_TOO_LARGE"
	CodeNotFound            Code = "NOT_FOUND"
	CodeMethodNotAllowed    Code = "METHOD_NOT_ALLOWED"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamRejected    Code = "UPSTREAM_REJECTED"
	CodeContractViolation   Code = "CONTRACT_VIOLATION"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a failure that can be rendered to the caller.
// Cause is kept for server-side logging and is never serialized.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details any
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

func MissingToken() *Error {
	return &Error{Code: CodeMissingToken, Status: http.StatusUnauthorized, Message: "Authorization header missing or malformed"}
}

func InvalidToken(cause error) *Error {
	return &Error{Code: CodeInvalidToken, Status: http.StatusUnauthorized, Message: "Invalid or expired token", Cause: cause}
}

func Unauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: "Authentication required"}
}

func Forbidden() *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: "User type not permitted"}
}

func Validation(details any, cause error) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: "Invalid request body", Details: details, Cause: cause}
}

func PayloadTooLarge(limit int64) *Error {
	return &Error{
		Code:    CodePayloadTooLarge,
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("Request body exceeds %d bytes", limit),
	}
}

func NotFound() *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: "Route not found"}
}

func MethodNotAllowed() *Error {
	return &Error{Code: CodeMethodNotAllowed, Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}
}

// UpstreamUnavailable signals a downstream 5xx or a call that never produced a status
func UpstreamUnavailable(cause error) *Error {
	return &Error{Code: CodeUpstreamUnavailable, Status: http.StatusBadGateway, Message: "Upstream service unavailable", Cause: cause}
}

// UpstreamRejected passes the downstream 4xx status through unchanged
func UpstreamRejected(status int, cause error) *Error {
	return &Error{Code: CodeUpstreamRejected, Status: status, Message: http.StatusText(status), Cause: cause}
}

func ContractViolation(cause error) *Error {
	return &Error{Code: CodeContractViolation, Status: http.StatusInternalServerError, Message: "Invalid response from upstream", Cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Internal server error", Cause: cause}
}

// From classifies err, falling back to an internal error
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

// HasCode reports whether err is an *Error with the given code
func HasCode(err error, code Code) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
