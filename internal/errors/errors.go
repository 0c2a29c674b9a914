package errors

import (
	stderrors "errors"
	"fmt"
	"syscall"
)

// Error is the structured error type for searchfs.
// It provides rich context for error handling, logging, and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with *Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Code returns a bare error carrying only code, for use as an errors.Is target.
func Code(code string) *Error {
	return &Error{Code: code}
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// InvalidRoot reports a root directory that cannot be indexed.
func InvalidRoot(path string, cause error) *Error {
	return New(ErrCodeInvalidRoot, fmt.Sprintf("invalid root directory: %s", path), cause).
		WithDetail("path", path).
		WithSuggestion("Pass an existing, readable directory")
}

// EntryVanished reports a filesystem entry that disappeared during a walk.
func EntryVanished(path string, cause error) *Error {
	return New(ErrCodeEntryVanished, fmt.Sprintf("entry vanished during walk: %s", path), cause).
		WithDetail("path", path)
}

// WalkFailed reports an unrecoverable filesystem error during a walk.
func WalkFailed(path string, cause error) *Error {
	return New(ErrCodeWalkFailed, fmt.Sprintf("failed to read %s", path), cause).
		WithDetail("path", path)
}

// StoreWriteFailed reports a failure writing the index store. A cause
// wrapping ENOSPC is reported as a full disk.
func StoreWriteFailed(message string, cause error) *Error {
	if stderrors.Is(cause, syscall.ENOSPC) {
		return New(ErrCodeDiskFull, message, cause).
			WithSuggestion("Free space on the disk holding the index, then rebuild")
	}
	return New(ErrCodeStoreWriteFailed, message, cause)
}

// PublishFailed reports that a finished index could not replace the live one.
// The temporary file is left on disk.
func PublishFailed(tempPath, target string, cause error) *Error {
	return New(ErrCodePublishFailed, fmt.Sprintf("failed to replace %s", target), cause).
		WithDetail("temp_path", tempPath).
		WithDetail("path", target).
		WithSuggestion("The new index was kept at " + tempPath)
}

// IndexLocked reports that another build holds the lock for an index.
func IndexLocked(path string) *Error {
	return New(ErrCodeIndexLocked, fmt.Sprintf("index is being rebuilt by another process: %s", path), nil).
		WithDetail("path", path).
		WithSuggestion("Wait for the other build to finish or use --wait")
}

// InvalidSize reports a malformed size expression.
func InvalidSize(token string, cause error) *Error {
	return New(ErrCodeInvalidSize, fmt.Sprintf("invalid size expression %q", token), cause).
		WithDetail("token", token).
		WithSuggestion("Use [+|-]<number>[K|M|G|T][B], e.g. +10M or -512K")
}

// InvalidRegex reports a regular expression that does not compile.
func InvalidRegex(pattern string, cause error) *Error {
	return New(ErrCodeInvalidRegex, fmt.Sprintf("invalid regular expression %q", pattern), cause).
		WithDetail("pattern", pattern)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, Code(code))
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain holds an Error with Retryable flag set.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if e, ok := As(err); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an Error.
// Returns empty string if err holds no Error.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from an Error.
// Returns empty string if err holds no Error.
func GetCategory(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}
