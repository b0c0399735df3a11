package packagemanager

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/steelcutops/pipcut/logger"
)

const (
	defaultLockTimeout    = 5 * time.Minute
	defaultLockRetryDelay = 500 * time.Millisecond
)

// Locker serializes pip mutations. Acquire returns the release func.
type Locker interface {
	Acquire(ctx context.Context) (func(), error)
}

// FileLock is an advisory lock file shared by every pipcut process on the
// local machine.
type FileLock struct {
	Path       string
	Timeout    time.Duration
	RetryDelay time.Duration
	Logger     logger.Logger
}

func NewFileLock(path string) *FileLock {
	return &FileLock{
		Path:       path,
		Timeout:    defaultLockTimeout,
		RetryDelay: defaultLockRetryDelay,
	}
}

func (l *FileLock) Acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return nil, NewLockError(err, l.Path)
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	retryDelay := l.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultLockRetryDelay
	}

	fileLock := flock.New(l.Path)
	locked, err := fileLock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, NewLockError(err, l.Path)
	}
	if !locked {
		return nil, NewLockError(nil, l.Path)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil && l.Logger != nil {
			l.Logger.Warn("Failed to release pip lock", "lockPath", l.Path, "error", err)
		}
	}, nil
}
