package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/store"
)

// Scanner walks directory trees. The zero value is not usable; call New.
type Scanner struct {
	lstat   func(string) (fs.FileInfo, error)
	stat    func(string) (fs.FileInfo, error)
	readDir func(string) ([]fs.DirEntry, error)
	logger  *slog.Logger
}

// New creates a Scanner that reads the real filesystem.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		lstat:   os.Lstat,
		stat:    os.Stat,
		readDir: os.ReadDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateRoots canonicalises roots to absolute, clean paths (which drops
// trailing separators) and checks that each is an existing directory.
// Exact duplicates and roots nested inside another root are dropped, since
// their entries would be recorded twice.
func ValidateRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, serrors.New(serrors.ErrCodeInvalidRoot, "no root directories given", nil).
			WithSuggestion("Pass at least one directory to index")
	}

	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			return nil, serrors.InvalidRoot(root, errors.New("empty path"))
		}
		p, err := filepath.Abs(root)
		if err != nil {
			return nil, serrors.InvalidRoot(root, err)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, serrors.InvalidRoot(root, err)
		}
		if !info.IsDir() {
			return nil, serrors.InvalidRoot(root, errors.New("not a directory"))
		}
		abs = append(abs, p)
	}

	out := make([]string, 0, len(abs))
	for i, p := range abs {
		redundant := false
		for j, q := range abs {
			if i == j {
				continue
			}
			if isWithin(p, q) || (p == q && j < i) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, p)
		}
	}

	return out, nil
}

// isWithin reports whether path lies strictly below dir.
func isWithin(path, dir string) bool {
	if path == dir {
		return false
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Scan walks opts.Roots and streams one result per descendant entry.
// The roots themselves are not emitted. The channel is closed when the walk
// ends, fails, or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	roots, err := ValidateRoots(opts.Roots)
	if err != nil {
		return nil, err
	}

	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	results := make(chan ScanResult, size)

	go func() {
		defer close(results)
		for _, root := range roots {
			if err := s.walk(ctx, root, results); err != nil {
				if ctx.Err() == nil {
					s.send(ctx, results, ScanResult{Err: err})
				}
				return
			}
		}
	}()

	return results, nil
}

// walk does a depth-first traversal of root. Each directory's children are
// emitted in name order before its subdirectories are descended into.
func (s *Scanner) walk(ctx context.Context, root string, results chan<- ScanResult) error {
	stack := []string{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.readDir(dir)
		if err != nil {
			if dir != root && (errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)) {
				skip := serrors.EntryVanished(dir, err)
				if errors.Is(err, fs.ErrPermission) {
					skip = serrors.New(serrors.ErrCodeFilePermission,
						fmt.Sprintf("cannot list directory: %s", dir), err).WithDetail("path", dir)
				}
				s.logger.Warn("scan_directory_skipped", "path", dir, "error", err)
				if !s.send(ctx, results, ScanResult{Skipped: skip}) {
					return ctx.Err()
				}
				continue
			}
			return serrors.WalkFailed(dir, err)
		}

		var subdirs []string
		for _, child := range children {
			path := filepath.Join(dir, child.Name())

			typ, descend := s.classify(path, child)
			entry, err := extract(s.lstat, path, typ)
			if err != nil {
				if typ == store.TypeFile && errors.Is(err, fs.ErrNotExist) {
					s.logger.Debug("scan_entry_skipped", "path", path, "error", err)
					if !s.send(ctx, results, ScanResult{Skipped: serrors.EntryVanished(path, err)}) {
						return ctx.Err()
					}
					continue
				}
				return serrors.WalkFailed(path, err)
			}

			if !s.send(ctx, results, ScanResult{Entry: entry}) {
				return ctx.Err()
			}
			if descend {
				subdirs = append(subdirs, path)
			}
		}

		// reversed so the stack pops them in name order
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return nil
}

// classify decides the recorded type of a listed entry and whether to
// descend into it. Symlinks are never followed for descent; one whose
// target is a directory is still recorded as a directory.
func (s *Scanner) classify(path string, d fs.DirEntry) (store.EntryType, bool) {
	if d.IsDir() {
		return store.TypeDirectory, true
	}
	if d.Type()&fs.ModeSymlink != 0 {
		if info, err := s.stat(path); err == nil && info.IsDir() {
			return store.TypeDirectory, false
		}
	}
	return store.TypeFile, false
}

func (s *Scanner) send(ctx context.Context, results chan<- ScanResult, r ScanResult) bool {
	select {
	case results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
