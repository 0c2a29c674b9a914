package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := fs.ErrNotExist

	// When: wrapping it
	err := EntryVanished("/data/a.txt", originalErr)

	// Then: the chain still reaches the original
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "publish error",
			code:     ErrCodePublishFailed,
			message:  "rename failed",
			expected: "[ERR_210_PUBLISH_FAILED] rename failed",
		},
		{
			name:     "size error",
			code:     ErrCodeInvalidSize,
			message:  "bad size",
			expected: "[ERR_407_INVALID_SIZE] bad size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := InvalidRoot("/a", nil)
	err2 := InvalidRoot("/b", nil)

	// Then: they match by code, through extra wrapping too
	assert.True(t, errors.Is(err1, err2))
	assert.True(t, errors.Is(fmt.Errorf("build: %w", err1), Code(ErrCodeInvalidRoot)))
	assert.False(t, errors.Is(err1, Code(ErrCodeInvalidSize)))
}

func TestHasCode_FindsWrappedError(t *testing.T) {
	err := fmt.Errorf("search: %w", InvalidRegex("(", nil))

	assert.True(t, HasCode(err, ErrCodeInvalidRegex))
	assert.False(t, HasCode(err, ErrCodeInvalidSize))
	assert.Equal(t, ErrCodeInvalidRegex, GetCode(err))
	assert.Equal(t, CategoryValidation, GetCategory(err))
}

func TestError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeFileNotFound, "file not found", nil)

	// When: adding details
	err = err.WithDetail("path", "/foo/bar.db")
	err = err.WithDetail("size", "1024")

	// Then: details are available
	assert.Equal(t, "/foo/bar.db", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestConstructors_CarryContext(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		code      string
		detailKey string
		detail    string
	}{
		{"invalid root", InvalidRoot("/nope", nil), ErrCodeInvalidRoot, "path", "/nope"},
		{"vanished", EntryVanished("/tmp/x", fs.ErrNotExist), ErrCodeEntryVanished, "path", "/tmp/x"},
		{"walk failed", WalkFailed("/root", fs.ErrPermission), ErrCodeWalkFailed, "path", "/root"},
		{"publish", PublishFailed("/x.db.temp", "/x.db", nil), ErrCodePublishFailed, "temp_path", "/x.db.temp"},
		{"locked", IndexLocked("/x.db"), ErrCodeIndexLocked, "path", "/x.db"},
		{"size", InvalidSize("12Q", nil), ErrCodeInvalidSize, "token", "12Q"},
		{"regex", InvalidRegex("(", nil), ErrCodeInvalidRegex, "pattern", "("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.detail, tt.err.Details[tt.detailKey])
		})
	}
}

func TestError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeWalkFailed, CategoryIO},
		{ErrCodePublishFailed, CategoryIO},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeInvalidRegex, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeIndexFailed, CategoryInternal},
		{"bogus", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeCorruptIndex, SeverityFatal},
		{ErrCodeWalkFailed, SeverityFatal},
		{ErrCodeStoreWriteFailed, SeverityFatal},
		{ErrCodeDiskFull, SeverityFatal},
		{ErrCodePublishFailed, SeverityFatal},
		{ErrCodeEntryVanished, SeverityWarning},
		{ErrCodeIndexLocked, SeverityWarning},
		{ErrCodeFileNotFound, SeverityError},
		{ErrCodeInvalidSize, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"locked index", IndexLocked("/x.db"), true},
		{"wrapped locked index", fmt.Errorf("build: %w", IndexLocked("/x.db")), true},
		{"not found", New(ErrCodeFileNotFound, "not found", nil), false},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"corrupt index", New(ErrCodeCorruptIndex, "index corrupt", nil), true},
		{"walk failed", WalkFailed("/a", nil), true},
		{"vanished entry", EntryVanished("/a", nil), false},
		{"standard error", errors.New("standard error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	wrapped := Wrap(ErrCodeInternal, errors.New("boom"))
	require.NotNil(t, wrapped)
	assert.Equal(t, "boom", wrapped.Message)
}

func TestStoreWriteFailed_DiskFull(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  string
	}{
		{"plain failure", errors.New("constraint failed"), ErrCodeStoreWriteFailed},
		{"no space", fmt.Errorf("%w: database or disk is full", syscall.ENOSPC), ErrCodeDiskFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StoreWriteFailed("failed to load batch 1", tt.cause)

			assert.Equal(t, tt.want, err.Code)
			assert.Equal(t, SeverityFatal, err.Severity)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}
