// Package scanner walks directory trees and extracts the metadata recorded
// for every file and directory below the given roots.
package scanner

import (
	"log/slog"

	"github.com/searchfs/searchfs/internal/store"
)

// DefaultBufferSize is the capacity of the result channel.
const DefaultBufferSize = 1024

// ScanOptions configures a walk.
type ScanOptions struct {
	// Roots are walked one after another, in order. They are canonicalised
	// with ValidateRoots before the walk starts.
	Roots []string

	// BufferSize is the result channel capacity (0 = DefaultBufferSize).
	BufferSize int
}

// ScanResult is returned from the scanner channel. Exactly one field is set.
type ScanResult struct {
	// Entry is a record for one file or directory.
	Entry *store.Entry

	// Skipped is a recoverable problem: an entry vanished or a subdirectory
	// could not be listed. The walk continues.
	Skipped error

	// Err is fatal. It is the last result on the channel.
	Err error
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for skipped entries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}
