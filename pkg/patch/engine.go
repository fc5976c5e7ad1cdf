// Package patch turns a Patch into a validated, persisted document.
//
// Applying a patch runs the same stages every time:
// structural check, resolution (new document or load by id), change detection,
// mutation, post-validation and persist. The first failing stage aborts the
// request and nothing is written.
package patch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/pack"
	"github.com/aethel-dev/aethel/pkg/validate"
)

// Store is the storage the engine reads from and writes to.
// *fs.Repository implements it.
type Store interface {
	// Get locates and loads a document, returning the path it was found at.
	Get(ctx context.Context, id uuid.UUID) (core.Document, string, error)
	// PathFor returns the location of a new document.
	PathFor(id uuid.UUID) string
	// Save atomically writes doc to path.
	Save(ctx context.Context, path string, doc core.Document) error
}

// Config wires an Engine.
type Config struct {
	Store     Store
	Validator *validate.Validator
	Clock     core.Clock
	IDs       core.IDSource
	Logger    *slog.Logger
}

// Engine applies patches. It holds no locks; callers serialize writes per vault.
type Engine struct {
	store     Store
	validator *validate.Validator
	clock     core.Clock
	ids       core.IDSource
	logger    *slog.Logger
}

// NewEngine creates an Engine. Missing clock, id source and validator fall back
// to the system clock, UUIDv7 ids and a validator without logging.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		store:     cfg.Store,
		validator: cfg.Validator,
		clock:     cfg.Clock,
		ids:       cfg.IDs,
		logger:    cfg.Logger,
	}
	if e.clock == nil {
		e.clock = core.SystemClock{}
	}
	if e.ids == nil {
		e.ids = core.V7IDs{}
	}
	if e.validator == nil {
		e.validator = validate.New(cfg.Logger)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Apply runs p against the documents in the store, validating the result
// against packs.
func (e *Engine) Apply(ctx context.Context, packs []*pack.Pack, p core.Patch) (core.WriteResult, error) {
	if err := Check(p); err != nil {
		return core.WriteResult{}, err
	}
	fm, err := core.NormalizeFields(p.Frontmatter)
	if err != nil {
		return core.WriteResult{}, err
	}
	p.Frontmatter = fm

	var (
		doc  core.Document
		path string
	)
	switch {
	case p.ID == nil && p.Mode == core.ModeCreate:
		_, entry, err := pack.Resolve(packs, *p.Type)
		if err != nil {
			return core.WriteResult{}, err
		}
		id, err := e.ids.NewID()
		if err != nil {
			return core.WriteResult{}, &core.Error{Kind: core.KindInternal, Msg: "failed to generate id", Err: err}
		}
		doc = NewDocument(entry, p, id, e.clock.Now())
		path = e.store.PathFor(id)

	case p.ID != nil:
		current, at, err := e.store.Get(ctx, *p.ID)
		if err != nil {
			return core.WriteResult{}, err
		}
		if p.Type != nil && *p.Type != current.Type {
			return core.WriteResult{}, &core.Error{
				Kind:     core.KindTypeMismatchOnUpdate,
				Expected: current.Type,
				Got:      *p.Type,
				ID:       current.ID.String(),
				Path:     at,
			}
		}
		if !WouldChange(current, p) {
			e.logger.Debug("patch is a no-op", "id", current.ID, "mode", p.Mode, "path", at)
			return core.WriteResult{ID: current.ID, Path: at, Committed: false, Warnings: []string{}}, nil
		}
		doc = Mutate(current, p, e.clock.Now())
		path = at

	default:
		return core.WriteResult{}, &core.Error{Kind: core.KindInvalidPatch, Mode: string(p.Mode), Msg: "id is required unless mode is create"}
	}

	if err := e.validator.Validate(packs, doc); err != nil {
		return core.WriteResult{}, core.WithContext(err, doc.ID.String(), path)
	}
	if err := e.store.Save(ctx, path, doc); err != nil {
		return core.WriteResult{}, err
	}

	e.logger.Debug("patch committed", "id", doc.ID, "mode", p.Mode, "path", path)
	return core.WriteResult{ID: doc.ID, Path: path, Committed: true, Warnings: []string{}}, nil
}
