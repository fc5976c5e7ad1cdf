package aethel

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/internal/platform"
	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/pack"
	"github.com/aethel-dev/aethel/pkg/typed"
	"github.com/aethel-dev/aethel/pkg/vault"
)

// --- Types ---

type (
	// Vault is an opened document vault.
	Vault = vault.Vault
	// Document is a parsed Markdown document with its front matter.
	Document = core.Document
	// Patch requests the creation or modification of one document.
	Patch = core.Patch
	// PatchMode selects how a Patch is applied.
	PatchMode = core.PatchMode
	// WriteResult reports the outcome of ApplyPatch.
	WriteResult = core.WriteResult
	// Error is the error type returned by every vault operation.
	Error = core.Error
	// Pack is an installed schema pack.
	Pack = pack.Pack
	// Recorder receives operation outcomes.
	Recorder = vault.Recorder
)

const (
	ModeCreate           = core.ModeCreate
	ModeAppend           = core.ModeAppend
	ModeMergeFrontmatter = core.ModeMergeFrontmatter
	ModeReplaceBody      = core.ModeReplaceBody
)

// DocumentModel is a document whose extra front matter is decoded into T.
type DocumentModel[T any] = typed.DocumentModel[T]

// TypedService is a public alias for the typed service.
type TypedService[T any] = typed.Service[T]

// --- Configuration ---

// Option defines a functional option for opening a vault.
type Option = platform.Option

// WithAutoInit creates docs/, packs/ and the system directory on Open.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the vault.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".aethel").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithClock replaces the time source used for created/updated stamps.
func WithClock(c core.Clock) Option {
	return platform.WithClock(c)
}

// WithFixedTime stamps every write with t.
func WithFixedTime(t time.Time) Option {
	return platform.WithClock(core.FixedClock(t))
}

// WithIDSource replaces the generator of new document ids.
func WithIDSource(ids core.IDSource) Option {
	return platform.WithIDSource(ids)
}

// WithIDSeed makes new document ids a deterministic function of seed.
func WithIDSeed(seed string) Option {
	return platform.WithIDSource(core.NewSeededIDs(seed))
}

// WithProcessLock guards every mutation with a lock file so that several
// processes may write to the same vault.
func WithProcessLock(enabled bool) Option {
	return platform.WithProcessLock(enabled)
}

// WithLockTimeout bounds the wait for the lock file.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithMetrics reports operation outcomes to r.
func WithMetrics(r Recorder) Option {
	return platform.WithMetrics(r)
}

// WithWatcherErrorHandler receives failures of the Watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// Open opens the vault rooted at path. Every vault opened in one process on
// the same root serializes its writes with the others.
func Open(path string, opts ...Option) (*Vault, error) {
	return platform.Open(path, opts...)
}

// Init opens the vault at path, creating its layout if needed.
func Init(path string, opts ...Option) (*Vault, error) {
	return platform.Open(path, append(opts, platform.WithAutoInit(true))...)
}

// Session opens vaults that share one set of options.
type Session = platform.Session

// NewSession creates a session whose vaults all receive opts.
func NewSession(opts ...Option) *Session {
	return platform.NewSession(opts...)
}

// NewTypedService creates a type-safe view of the documents of typeID.
func NewTypedService[T any](store core.Store, typeID string) *typed.Service[T] {
	return typed.NewService[T](store, typeID)
}

// --- Utils ---

// FindVaultRoot looks upwards from startDir for a directory holding docs/ and packs/.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// ParseID parses a canonical document id.
func ParseID(s string) (uuid.UUID, error) {
	return core.ParseID(s)
}

// Render converts an error into its wire representation: a numeric code, a
// message and the structured data of the failure.
func Render(err error) core.Response {
	return core.Render(err)
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) core.Kind {
	return core.KindOf(err)
}

// Error kinds most often inspected by callers. See pkg/core for the full list.
const (
	KindDocNotFound          = core.KindDocNotFound
	KindPackNotFound         = core.KindPackNotFound
	KindPackAlreadyInstalled = core.KindPackAlreadyInstalled
	KindSchemaValidation     = core.KindSchemaValidation
)
