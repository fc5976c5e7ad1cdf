package platform

import (
	"context"
	"os"

	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/vault"
)

// Open returns the vault rooted at root.
//
//	v, err := platform.Open("./notes", platform.WithAutoInit(true))
func Open(root string, opts ...Option) (*vault.Vault, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.mustExist && !o.autoInit {
		info, err := os.Stat(root)
		if err != nil {
			return nil, &core.Error{Kind: core.KindIO, Path: root, Msg: "vault root does not exist", Err: err}
		}
		if !info.IsDir() {
			return nil, &core.Error{Kind: core.KindIO, Path: root, Msg: "vault root is not a directory"}
		}
	}

	v := vault.New(vault.Config{
		Root:              root,
		SystemDir:         o.systemDir,
		MustExist:         o.mustExist,
		Logger:            o.logger,
		Clock:             o.clock,
		IDs:               o.ids,
		Locks:             o.locks,
		ProcessLock:       o.processLock,
		LockTimeout:       o.lockTimeout,
		Recorder:          o.recorder,
		WatchErrorHandler: o.onWatchErr,
	})

	if o.autoInit {
		if err := v.Init(context.Background()); err != nil {
			return nil, err
		}
	}
	if o.logger != nil {
		o.logger.Debug("vault opened", "root", v.Root(), "process_lock", o.processLock)
	}
	return v, nil
}

// Session applies one set of options to every vault it opens. Its vaults use
// the process-wide lock registry unless the session was given WithLocks.
type Session struct {
	locks *vault.LockRegistry
	opts  []Option
}

// NewSession creates a session whose vaults all receive opts.
func NewSession(opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	locks := o.locks
	if locks == nil {
		locks = vault.ProcessLocks()
	}
	return &Session{locks: locks, opts: opts}
}

// Open opens root within the session. Per-call options apply after the
// session's own.
func (s *Session) Open(root string, opts ...Option) (*vault.Vault, error) {
	all := make([]Option, 0, len(s.opts)+len(opts)+1)
	all = append(all, s.opts...)
	all = append(all, opts...)
	all = append(all, WithLocks(s.locks))
	return Open(root, all...)
}

// Locks returns the session's registry.
func (s *Session) Locks() *vault.LockRegistry {
	return s.locks
}
