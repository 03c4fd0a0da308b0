package errors

import (
	stderrors "errors"
	"fmt"

	"sxfit/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping an existing code or
// deriving one from the domain error taxonomy.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    Classify(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeUnknownSystematic = "UNKNOWN_SYSTEMATIC"
	CodeInvalidReference  = "INVALID_REFERENCE"
	CodeIOError           = "IO_ERROR"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"
	CodeStorageError      = "STORAGE_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Classify maps a domain error onto an error code.
func Classify(err error) string {
	switch {
	case stderrors.Is(err, core.ErrUnknownSystematicType):
		return CodeUnknownSystematic
	case stderrors.Is(err, core.ErrConfig):
		return CodeConfigInvalid
	case stderrors.Is(err, core.ErrInvalidReference):
		return CodeInvalidReference
	case stderrors.Is(err, core.ErrIO):
		return CodeIOError
	case stderrors.Is(err, core.ErrDimensionMismatch):
		return CodeDimensionMismatch
	default:
		return CodeInternalError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func StorageError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageError,
		Message: message,
		Cause:   cause,
	}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
