package scanner

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/searchfs/searchfs/internal/store"
)

// Extract reads the metadata of path without following symlinks.
// typ is decided by the walker. Size is only recorded for files.
func Extract(path string, typ store.EntryType) (*store.Entry, error) {
	return extract(os.Lstat, path, typ)
}

func extract(lstat func(string) (fs.FileInfo, error), path string, typ store.EntryType) (*store.Entry, error) {
	info, err := lstat(path)
	if err != nil {
		return nil, err
	}

	e := &store.Entry{
		Path:     path,
		Parent:   filepath.Dir(path),
		Name:     filepath.Base(path),
		Type:     typ,
		Created:  createdTime(path, info),
		Modified: info.ModTime(),
	}
	if typ == store.TypeFile {
		e.Size = info.Size()
	}

	return e, nil
}
