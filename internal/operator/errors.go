package operator

import (
	"errors"
	"fmt"
)

// ValidationError reports a call the kernel refuses before anything is
// committed. Decrypt failures are never validation errors.
type ValidationError struct {
	// Code identifies the error category.
	Code ValidationErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the dotted path of the rejected call.
	Path string

	// Details contains additional context.
	Details map[string]string
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode string

const (
	// ErrCodeInvalidUsername indicates an identity label failed the username rules.
	ErrCodeInvalidUsername ValidationErrorCode = "INVALID_USERNAME"

	// ErrCodeInvalidArgument indicates a malformed call.
	ErrCodeInvalidArgument ValidationErrorCode = "INVALID_ARGUMENT"

	// ErrCodeUnsupportedValue indicates a value that cannot be committed
	// (floats, functions, channels).
	ErrCodeUnsupportedValue ValidationErrorCode = "UNSUPPORTED_VALUE"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrorCode returns the code of a wrapped ValidationError, or "".
func ErrorCode(err error) ValidationErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// NewUnsupportedValueError wraps a value conversion failure at path.
func NewUnsupportedValueError(path string, cause error) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeUnsupportedValue,
		Message: cause.Error(),
		Path:    path,
	}
}
