package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/aethel-dev/aethel/pkg/core"
)

// LockFileName is the name of the cross-process lock inside the system directory.
const LockFileName = "lock"

// FileLock is an advisory cross-process lock held with flock(2) on a file in
// the system directory. The kernel drops it when the holder exits, so a file
// left behind by a crashed writer never blocks later writers.
// It complements the in-process lock registry when several processes share a vault.
type FileLock struct {
	path    string
	timeout time.Duration
	poll    time.Duration
}

// NewFileLock returns a lock at <root>/<systemDir>/lock that gives up after timeout.
func NewFileLock(root, systemDir string, timeout time.Duration) *FileLock {
	if systemDir == "" {
		systemDir = DefaultSystemDir
	}
	return &FileLock{
		path:    filepath.Join(root, systemDir, LockFileName),
		timeout: timeout,
		poll:    10 * time.Millisecond,
	}
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// Lock blocks until the lock is held, the timeout elapses
// (KindConcurrentWriteConflict) or ctx is cancelled.
// The lock file itself stays on disk after release.
func (l *FileLock) Lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, &core.Error{Kind: core.KindLockFile, Path: l.path, Err: err}
	}

	fl := flock.New(l.path)
	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ok, err := fl.TryLockContext(waitCtx, l.poll)
	if ok {
		return func() {
			fl.Unlock()
		}, nil
	}

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err == nil || errors.Is(err, context.DeadlineExceeded):
		return nil, &core.Error{Kind: core.KindConcurrentWriteConflict, Path: l.path, Msg: fmt.Sprintf("lock held by another process for more than %s", l.timeout)}
	default:
		return nil, &core.Error{Kind: core.KindLockFile, Path: l.path, Msg: "failed to acquire lock", Err: err}
	}
}
