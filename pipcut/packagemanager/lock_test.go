package packagemanager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "pip.lock")

	first := NewFileLock(path)
	release, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	second := &FileLock{Path: path, Timeout: 50 * time.Millisecond, RetryDelay: 10 * time.Millisecond}
	_, err = second.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, LockError))

	release()

	release, err = second.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestFileLockCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pip.lock")

	release, err := NewFileLock(path).Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewFileLock(path).Acquire(ctx)
	assert.True(t, errorx.IsOfType(err, LockError))
}
