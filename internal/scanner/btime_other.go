//go:build !linux && !darwin

package scanner

import (
	"io/fs"
	"time"
)

// createdTime falls back to the modification time where no birth time is exposed.
func createdTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
