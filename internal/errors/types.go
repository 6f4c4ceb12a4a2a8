// Package errors provides the structured error type shared by the assetmin
// engine and CLI. Errors carry a category, a stable code and the document or
// asset path they relate to so callers can decide between failing a
// document and skipping a single asset.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeBinaryContent = "ERR_BINARY_CONTENT"
	ErrCodeWriteBundle   = "ERR_WRITE_BUNDLE"
	ErrCodeOutsideRoot   = "ERR_OUTSIDE_ROOT"
	ErrCodeWriteOutput   = "ERR_WRITE_OUTPUT"
	ErrCodeReadAsset     = "ERR_READ_ASSET"
	ErrCodeConfigInvalid = "ERR_INVALID_CONFIG"
	ErrCodeFileNotFound  = "ERR_FILE_NOT_FOUND"
	ErrCodeInternalError = "ERR_INTERNAL"
)

// AssetError is a structured error type with context.
type AssetError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	FilePath    string
	Offset      int
	Recoverable bool
}

// Error implements the error interface.
func (e *AssetError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Offset > 0 {
			location += fmt.Sprintf("@%d", e.Offset)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *AssetError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *AssetError) Is(target error) bool {
	var t *AssetError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *AssetError) WithContext(key string, value interface{}) *AssetError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds the document path and byte offset the error refers to.
func (e *AssetError) WithLocation(filePath string, offset int) *AssetError {
	e.FilePath = filePath
	e.Offset = offset

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *AssetError {
	return &AssetError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewInputError creates an error for a document that violates the input
// contract. These are never recoverable.
func NewInputError(code, message string) *AssetError {
	return &AssetError{
		Type:    ErrorTypeInput,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *AssetError {
	return &AssetError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *AssetError {
	return &AssetError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *AssetError {
	return &AssetError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ae *AssetError
	if errors.As(err, &ae) {
		return ae.Recoverable
	}

	return false
}

// IsInputError reports whether err is an input contract violation.
func IsInputError(err error) bool {
	return hasType(err, ErrorTypeInput)
}

// IsIOError reports whether err is an I/O failure.
func IsIOError(err error) bool {
	return hasType(err, ErrorTypeIO)
}

// IsConfigError reports whether err is a configuration failure.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

func hasType(err error, t ErrorType) bool {
	var ae *AssetError
	if errors.As(err, &ae) {
		return ae.Type == t
	}

	return false
}

// ErrBinaryContent creates the error returned for documents that are not text.
func ErrBinaryContent(path string, cause error) *AssetError {
	e := NewInputError(ErrCodeBinaryContent, "document content is not text")
	e.Cause = cause

	return e.WithLocation(path, 0)
}

// ErrWriteBundle creates the error returned when a merged bundle cannot be written.
func ErrWriteBundle(path string, cause error) *AssetError {
	return NewIOError(ErrCodeWriteBundle, "failed to write merged bundle "+path, cause)
}

// ErrOutsideRoot creates the error returned for a bundle name that resolves
// outside the asset root.
func ErrOutsideRoot(name, root string) *AssetError {
	return NewInputError(ErrCodeOutsideRoot, "bundle "+name+" resolves outside root "+root).
		WithContext("bundle", name)
}

// ErrInvalidConfig creates a configuration validation error for a single field.
func ErrInvalidConfig(field, reason string) *AssetError {
	return NewConfigError(ErrCodeConfigInvalid, field+": "+reason).
		WithContext("field", field)
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at a level matching its category.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ae *AssetError
	if !errors.As(err, &ae) {
		h.logger.Error(ctx, err, "Unhandled error occurred")

		return
	}

	switch ae.Type {
	case ErrorTypeInput, ErrorTypeValidation:
		h.logger.Warn(ctx, ae, "Document rejected",
			"type", ae.Type,
			"code", ae.Code,
			"file", ae.FilePath)
	default:
		h.logger.Error(ctx, ae, "Error occurred",
			"type", ae.Type,
			"code", ae.Code,
			"file", ae.FilePath)
	}
}
