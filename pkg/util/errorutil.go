package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes covering the failure taxonomy: missing configuration,
// denied authorization, failed preconditions and platform I/O, plus the
// generic classes the ops API needs.
const (
	CodeConfigMissing      = "CONFIG_MISSING"
	CodeAuthDenied         = "AUTH_DENIED"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodePlatformIO         = "PLATFORM_IO"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors. Message is safe to show to
// the acting user.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewConfigMissing reports absent configuration; the action degrades
// rather than crashes.
func NewConfigMissing(message string) error {
	return NewDomainError(CodeConfigMissing, message, http.StatusServiceUnavailable, nil)
}

// NewAuthDenied reports that the actor lacks the right to act. No state
// was changed.
func NewAuthDenied(message string) error {
	return NewDomainError(CodeAuthDenied, message, http.StatusForbidden, nil)
}

// NewPrecondition reports a failed precondition such as a duplicate open
// ticket or an unrecognized ticket channel. No state was changed.
func NewPrecondition(message string) error {
	return NewDomainError(CodePreconditionFailed, message, http.StatusConflict, nil)
}

// NewPlatformIO wraps a chat-platform I/O failure.
func NewPlatformIO(message string, err error) error {
	return &DomainError{
		Code:       CodePlatformIO,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource").(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// CodeOf extracts the error code, defaulting to INTERNAL_ERROR.
func CodeOf(err error) string {
	if de := ToDomainError(err); de != nil {
		return de.Code
	}
	return CodeInternal
}
