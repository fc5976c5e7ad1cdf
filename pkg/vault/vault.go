// Package vault ties storage, the pack registry and the patch engine together
// for one vault root. All mutations of a vault are serialized through a
// LockRegistry; reads take no lock.
package vault

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/adapters/fs"
	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/pack"
	"github.com/aethel-dev/aethel/pkg/patch"
	"github.com/aethel-dev/aethel/pkg/validate"
)

// DefaultLockTimeout bounds the wait for the cross-process lock file.
const DefaultLockTimeout = 5 * time.Second

// Recorder receives operation outcomes. internal/metrics provides a
// Prometheus-backed implementation.
type Recorder interface {
	ObservePatch(mode core.PatchMode, outcome string, elapsed time.Duration)
	ObserveRead(outcome string)
	ObservePacks(loaded, skipped int)
}

// Patch outcomes reported to a Recorder.
const (
	OutcomeCommitted = "committed"
	OutcomeNoop      = "noop"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeOK        = "ok"
)

// Config configures a Vault. Only Root is required.
type Config struct {
	Root      string
	SystemDir string
	MustExist bool
	Logger    *slog.Logger
	Clock     core.Clock
	IDs       core.IDSource
	// Locks serializes mutations. Nil means the process-wide registry, so
	// every Vault on the same root within one process takes the same mutex.
	Locks *LockRegistry
	// ProcessLock additionally takes <root>/<SystemDir>/lock around each
	// mutation so that several processes can share a vault.
	ProcessLock bool
	LockTimeout time.Duration
	Recorder    Recorder
	// WatchErrorHandler receives watcher failures.
	WatchErrorHandler func(error)
}

// Vault is a document store rooted at a directory holding docs/ and packs/.
type Vault struct {
	root      string
	repo      *fs.Repository
	engine    *patch.Engine
	validator *validate.Validator
	locks     *LockRegistry
	flock     *fs.FileLock
	recorder  Recorder
	logger    *slog.Logger

	mu    sync.Mutex
	stats stats
}

type stats struct {
	committed int
	noops     int
	rejected  int
	packs     int
	skipped   int
}

// New opens the vault at cfg.Root. It performs no I/O; use Init to create
// the directory layout.
func New(cfg Config) *Vault {
	root := Canonical(cfg.Root)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	repo := fs.NewRepository(fs.Config{
		Path:         root,
		MustExist:    cfg.MustExist,
		Logger:       cfg.Logger,
		SystemDir:    cfg.SystemDir,
		ErrorHandler: cfg.WatchErrorHandler,
	})
	validator := validate.New(logger)

	v := &Vault{
		root:      root,
		repo:      repo,
		validator: validator,
		locks:     cfg.Locks,
		recorder:  cfg.Recorder,
		logger:    logger,
		engine: patch.NewEngine(patch.Config{
			Store:     repo,
			Validator: validator,
			Clock:     cfg.Clock,
			IDs:       cfg.IDs,
			Logger:    logger,
		}),
	}
	if v.locks == nil {
		v.locks = processLocks
	}
	if cfg.ProcessLock {
		timeout := cfg.LockTimeout
		if timeout <= 0 {
			timeout = DefaultLockTimeout
		}
		v.flock = fs.NewFileLock(root, cfg.SystemDir, timeout)
	}
	return v
}

// Init creates the vault layout (docs/, packs/, the system directory and
// .gitignore entries). It is idempotent.
func (v *Vault) Init(ctx context.Context) error {
	return v.repo.Initialize(ctx)
}

// Root returns the canonical vault root.
func (v *Vault) Root() string {
	return v.root
}

// ApplyPatch validates and applies p while holding the vault lock.
func (v *Vault) ApplyPatch(ctx context.Context, p core.Patch) (core.WriteResult, error) {
	start := time.Now()

	// Structural failures never touch the disk or the lock.
	if err := patch.Check(p); err != nil {
		v.observe(p.Mode, OutcomeRejected, start)
		return core.WriteResult{}, err
	}

	unlock, err := v.lock(ctx)
	if err != nil {
		v.observe(p.Mode, OutcomeFailed, start)
		return core.WriteResult{}, err
	}
	defer unlock()

	packs, err := v.Packs()
	if err != nil {
		v.observe(p.Mode, OutcomeFailed, start)
		return core.WriteResult{}, err
	}

	res, err := v.engine.Apply(ctx, packs, p)
	switch {
	case err != nil && core.CodeOf(err) >= 50000:
		v.observe(p.Mode, OutcomeFailed, start)
		v.logger.Error("patch failed", "patch", p.String(), "error", err)
	case err != nil:
		v.observe(p.Mode, OutcomeRejected, start)
	case res.Committed:
		v.observe(p.Mode, OutcomeCommitted, start)
	default:
		v.observe(p.Mode, OutcomeNoop, start)
	}
	return res, err
}

// lock takes the in-process lock and, when configured, the lock file.
func (v *Vault) lock(ctx context.Context) (func(), error) {
	release := v.locks.Acquire(v.root)
	if v.flock == nil {
		return release, nil
	}
	unlockFile, err := v.flock.Lock(ctx)
	if err != nil {
		release()
		return nil, err
	}
	return func() {
		unlockFile()
		release()
	}, nil
}

// Read returns the document with the given id.
func (v *Vault) Read(ctx context.Context, id uuid.UUID) (core.Document, error) {
	doc, _, err := v.repo.Get(ctx, id)
	v.observeRead(err)
	return doc, err
}

// Locate returns the path of the document with the given id.
func (v *Vault) Locate(ctx context.Context, id uuid.UUID) (string, error) {
	return v.repo.Locate(ctx, id)
}

// Check reads the document with the given id and validates it against the
// installed packs. The document is returned even when validation fails.
func (v *Vault) Check(ctx context.Context, id uuid.UUID) (core.Document, error) {
	doc, path, err := v.repo.Get(ctx, id)
	v.observeRead(err)
	if err != nil {
		return core.Document{}, err
	}
	if err := v.Validate(doc); err != nil {
		return doc, core.WithContext(err, id.String(), path)
	}
	return doc, nil
}

// Validate checks doc against the installed packs.
func (v *Vault) Validate(doc core.Document) error {
	packs, err := v.Packs()
	if err != nil {
		return err
	}
	return v.validator.Validate(packs, doc)
}

// Packs loads every valid pack under packs/. Invalid pack directories are
// logged and skipped.
func (v *Vault) Packs() ([]*pack.Pack, error) {
	packs, skipped, err := pack.Discover(v.root)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		v.logger.Debug("skipping pack directory", "path", s.Path, "reason", s.Reason)
	}

	v.mu.Lock()
	v.stats.packs, v.stats.skipped = len(packs), len(skipped)
	v.mu.Unlock()
	if v.recorder != nil {
		v.recorder.ObservePacks(len(packs), len(skipped))
	}
	return packs, nil
}

// AddPack validates the pack in src and installs it into packs/.
func (v *Vault) AddPack(ctx context.Context, src string) (*pack.Pack, error) {
	unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := pack.Install(v.root, src)
	if err != nil {
		return nil, err
	}
	v.logger.Info("pack installed", "name", p.Name, "version", p.Version, "path", p.Dir)
	return p, nil
}

// RemovePack uninstalls every version of the named pack.
func (v *Vault) RemovePack(ctx context.Context, name string) (bool, error) {
	unlock, err := v.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	removed, err := pack.Remove(v.root, name)
	if err == nil && removed {
		v.logger.Info("pack removed", "name", name)
	}
	return removed, err
}

// List returns the documents whose path below docs/ matches pattern.
// An empty pattern lists everything.
func (v *Vault) List(ctx context.Context, pattern string) ([]core.Entry, error) {
	return v.repo.List(ctx, pattern)
}

// Watch reports document changes until ctx is cancelled.
func (v *Vault) Watch(ctx context.Context) (<-chan core.Event, error) {
	return v.repo.Watch(ctx)
}

func (v *Vault) observe(mode core.PatchMode, outcome string, start time.Time) {
	v.mu.Lock()
	switch outcome {
	case OutcomeCommitted:
		v.stats.committed++
	case OutcomeNoop:
		v.stats.noops++
	case OutcomeRejected, OutcomeFailed:
		v.stats.rejected++
	}
	v.mu.Unlock()

	if v.recorder != nil {
		v.recorder.ObservePatch(mode, outcome, time.Since(start))
	}
}

func (v *Vault) observeRead(err error) {
	if v.recorder == nil {
		return
	}
	switch {
	case err == nil:
		v.recorder.ObserveRead(OutcomeOK)
	case core.CodeOf(err) >= 50000:
		v.recorder.ObserveRead(OutcomeFailed)
	default:
		v.recorder.ObserveRead(OutcomeRejected)
	}
}

var _ core.Store = (*Vault)(nil)
