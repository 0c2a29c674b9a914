package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	serrors "github.com/searchfs/searchfs/internal/errors"
)

// LockSuffix is appended to the output path to name the build lock file.
const LockSuffix = ".lock"

// BuildLock serialises builds of one output path across processes.
// Readers never take it.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates the lock guarding builds of outputPath.
func NewBuildLock(outputPath string) *BuildLock {
	lockPath := outputPath + LockSuffix
	return &BuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without blocking. If another process holds it the
// returned error has code ERR_211_INDEX_LOCKED and is retryable.
func (l *BuildLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if !acquired {
		return serrors.IndexLocked(l.path)
	}

	l.locked = true
	return nil
}

// Release drops the lock. Calling it on an unheld lock is a no-op.
func (l *BuildLock) Release() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release build lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}
