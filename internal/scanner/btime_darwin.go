//go:build darwin

package scanner

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// createdTime returns the birth time reported by lstat.
func createdTime(path string, info fs.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Birthtimespec.Unix())
}
