// Package store persists filesystem entries in a single SQLite file.
// A Writer bulk-loads a fresh file; a Reader queries a published one.
package store

import (
	"fmt"
	"strings"
	"time"
)

// EntryType distinguishes files from directories.
type EntryType int

const (
	// TypeFile is any non-directory entry, including symlinks to non-directories.
	TypeFile EntryType = iota
	// TypeDirectory is a directory, or a symlink whose target is one.
	TypeDirectory
)

// String returns "file" or "directory".
func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	default:
		return fmt.Sprintf("EntryType(%d)", int(t))
	}
}

// Short returns the one-letter form used on the command line.
func (t EntryType) Short() string {
	if t == TypeDirectory {
		return "d"
	}
	return "f"
}

// Value returns the integer persisted in the type column.
func (t EntryType) Value() int64 {
	return int64(t)
}

// MarshalText implements encoding.TextMarshaler.
func (t EntryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// EntryTypeFromValue maps a persisted type column back to an EntryType.
func EntryTypeFromValue(v int64) (EntryType, error) {
	switch v {
	case 0:
		return TypeFile, nil
	case 1:
		return TypeDirectory, nil
	default:
		return 0, fmt.Errorf("unknown entry type value %d", v)
	}
}

// ParseEntryType accepts f, file, d, dir and directory (case-insensitive).
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "file":
		return TypeFile, nil
	case "d", "dir", "directory":
		return TypeDirectory, nil
	default:
		return 0, fmt.Errorf("unknown entry type %q (use f or d)", s)
	}
}

// Entry is the metadata recorded for one filesystem object.
type Entry struct {
	// Path is the absolute path, Parent joined with Name.
	Path string `json:"path"`
	// Parent is the absolute containing directory with no trailing separator.
	Parent string `json:"parent"`
	// Name is the final path component.
	Name string    `json:"name"`
	Type EntryType `json:"type"`
	// Size is in bytes and always 0 for directories.
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// HasSize reports whether Size is meaningful. Directories have no size.
func (e Entry) HasSize() bool {
	return e.Type == TypeFile
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == TypeDirectory
}
