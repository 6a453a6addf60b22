// Package errors defines the structured error type shared across the
// monitor. Every failure carries a Code naming its failure domain, so
// callers branch on codes instead of matching message text.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code names a failure domain.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeTimeout          Code = "TIMEOUT"
	CodeCancelled        Code = "CANCELLED"
	CodeCaptureFailed    Code = "CAPTURE_FAILED"
	CodeOCRFailed        Code = "OCR_FAILED"
	CodeOCRInvalidImage  Code = "OCR_INVALID_IMAGE"
	CodeConfigInvalid    Code = "CONFIG_INVALID"
	CodeConfigMissing    Code = "CONFIG_MISSING"
	CodeCalibration      Code = "CALIBRATION_INVALID"
	CodeTransportFailed  Code = "TRANSPORT_FAILED"
	CodeTransportLimited Code = "TRANSPORT_RATE_LIMITED"
)

// AppError is an error with a code, optional metadata, and a wrapped
// cause.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error { return e.Cause }

// New builds an error carrying the given code.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf attaches a code and formatted message to an underlying error.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata records a key/value pair on the error.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of the outermost AppError in the chain, or
// CodeUnknown when there is none.
func CodeOf(err error) Code {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the failure is worth retrying.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeTimeout, CodeTransportFailed, CodeTransportLimited:
		return true
	default:
		return false
	}
}
