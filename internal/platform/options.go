package platform

import (
	"log/slog"
	"time"

	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/vault"
)

// options holds the internal configuration of an opened vault.
type options struct {
	logger      *slog.Logger
	clock       core.Clock
	ids         core.IDSource
	locks       *vault.LockRegistry
	recorder    vault.Recorder
	systemDir   string
	mustExist   bool
	autoInit    bool
	processLock bool
	lockTimeout time.Duration
	onWatchErr  func(error)
}

// Option configures Open.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		clock:       core.SystemClock{},
		ids:         core.V7IDs{},
		lockTimeout: vault.DefaultLockTimeout,
	}
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the time source used for created/updated.
func WithClock(c core.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithIDSource replaces the generator of new document ids.
func WithIDSource(ids core.IDSource) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithLocks replaces the process-wide lock registry, isolating the vaults
// that receive it from every other vault in the process.
func WithLocks(locks *vault.LockRegistry) Option {
	return func(o *options) {
		o.locks = locks
	}
}

// WithProcessLock enables the cross-process lock file around every mutation.
func WithProcessLock(enabled bool) Option {
	return func(o *options) {
		o.processLock = enabled
	}
}

// WithLockTimeout bounds the wait for the cross-process lock file.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithMetrics reports operation outcomes to r.
func WithMetrics(r vault.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithSystemDir sets the hidden state directory name. Defaults to ".aethel".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithMustExist makes Open fail when the vault root is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithAutoInit creates the vault layout on Open.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithWatcherErrorHandler receives failures of the Watch loop, which are
// otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onWatchErr = fn
	}
}
