package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable classification the presentation layer maps to
// user-facing messages. Every kind is terminal for the current run.
type ErrorKind string

const (
	KindInvalidLink        ErrorKind = "invalid_link"
	KindUnsupportedInput   ErrorKind = "unsupported_input"
	KindAcquisitionError   ErrorKind = "acquisition_error"
	KindConversionError    ErrorKind = "conversion_error"
	KindUploadError        ErrorKind = "upload_error"
	KindTranscriptionError ErrorKind = "transcription_error"
	KindRenderError        ErrorKind = "render_error"
)

// Error is a kind-tagged pipeline failure with an optional underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error formats the failure for logs.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError creates a kind-tagged error wrapping cause (which may be nil).
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Errorf creates a kind-tagged error with a formatted message and no cause.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
