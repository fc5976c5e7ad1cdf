package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/core"
)

const (
	// DocsDir holds the documents of a vault.
	DocsDir = "docs"
	// PacksDir holds the installed schema packs of a vault.
	PacksDir = "packs"
	// DefaultSystemDir holds vault-local state (index, lock file).
	DefaultSystemDir = ".aethel"
	// DocExt is the extension of document files.
	DocExt = ".md"
)

// Repository stores documents as Markdown files under <root>/docs.
type Repository struct {
	Path   string
	cache  *cache
	config Config
	ser    Serializer

	cacheOnce sync.Once
	mu        sync.RWMutex

	watcherActive bool
	lastScan      int
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	MustExist bool
	Logger    *slog.Logger
	SystemDir string // e.g. ".aethel"
	// ErrorHandler receives watcher failures. Nil means log only.
	ErrorHandler func(error)
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	return &Repository{
		Path:   config.Path,
		config: config,
		cache:  newCache(config.Path, config.SystemDir),
		ser:    NewMarkdownSerializer(),
	}
}

// Initialize creates the vault layout: docs/, packs/ and the system directory,
// each holding a .gitkeep, plus .gitignore entries for local-only state.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return &core.Error{Kind: core.KindIO, Path: r.Path, Msg: "vault path does not exist"}
		}
		if err != nil {
			return &core.Error{Kind: core.KindIO, Path: r.Path, Err: err}
		}
		if !info.IsDir() {
			return &core.Error{Kind: core.KindIO, Path: r.Path, Msg: "vault path is not a directory"}
		}
	}

	for _, dir := range []string{DocsDir, PacksDir, r.config.SystemDir} {
		full := filepath.Join(r.Path, dir)
		if err := os.MkdirAll(full, 0755); err != nil {
			return &core.Error{Kind: core.KindIO, Path: full, Msg: "failed to create directory", Err: err}
		}
		keep := filepath.Join(full, ".gitkeep")
		if _, err := os.Stat(keep); os.IsNotExist(err) {
			if err := os.WriteFile(keep, nil, 0644); err != nil {
				return &core.Error{Kind: core.KindIO, Path: keep, Err: err}
			}
		}
	}

	if _, err := r.ensureIgnore(); err != nil {
		return &core.Error{Kind: core.KindIO, Msg: "failed to ensure .gitignore", Err: err}
	}
	return nil
}

// ensureIgnore keeps the index and lock file out of version control.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	entries := []string{
		r.config.SystemDir + "/index.json",
		r.config.SystemDir + "/lock",
	}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, e := range entries {
		if !present[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteString("\n")
	}
	for _, e := range missing {
		buf.WriteString(e + "\n")
	}
	return true, WriteFileAtomic(ignorePath, buf.Bytes(), 0644)
}

// DocsPath returns the absolute documents directory.
func (r *Repository) DocsPath() string {
	return filepath.Join(r.Path, DocsDir)
}

// PathFor returns the canonical location of a new document.
func (r *Repository) PathFor(id uuid.UUID) string {
	return filepath.Join(r.DocsPath(), id.String()+DocExt)
}

func (r *Repository) loadCache() {
	r.cacheOnce.Do(func() {
		if err := r.cache.Load(); err != nil {
			r.logWarn("failed to load index", "error", err)
		}
	})
}

// Locate finds the file holding the document with the given id.
// The canonical path docs/<id>.md is tried first; otherwise the index and
// finally a recursive scan of docs/ for a file named <id>.md are consulted.
func (r *Repository) Locate(ctx context.Context, id uuid.UUID) (string, error) {
	direct := r.PathFor(id)
	if isFile(direct) {
		return direct, nil
	}

	name := id.String() + DocExt
	r.loadCache()
	if rel, ok := r.cache.Lookup(id.String()); ok {
		candidate := filepath.Join(r.DocsPath(), filepath.FromSlash(rel))
		if filepath.Base(candidate) == name && isFile(candidate) {
			return candidate, nil
		}
		r.cache.Delete(rel)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !isDir(r.DocsPath()) {
		return "", &core.Error{Kind: core.KindDocNotFound, ID: id.String()}
	}

	matches, err := doublestar.Glob(os.DirFS(r.DocsPath()), "**/"+name, doublestar.WithFilesOnly())
	if err != nil {
		return "", &core.Error{Kind: core.KindIO, ID: id.String(), Msg: "failed to scan documents", Err: err}
	}
	if len(matches) == 0 {
		return "", &core.Error{Kind: core.KindDocNotFound, ID: id.String()}
	}
	slices.Sort(matches)
	rel := matches[0]

	if r.config.Logger != nil {
		r.config.Logger.Debug("document located by scan", "id", id, "path", rel)
	}
	r.remember(filepath.Join(r.DocsPath(), filepath.FromSlash(rel)), id.String(), "")
	if err := r.cache.Save(); err != nil {
		r.logWarn("failed to save index", "error", err)
	}
	return filepath.Join(r.DocsPath(), filepath.FromSlash(rel)), nil
}

// Load parses the document stored at path.
func (r *Repository) Load(path string) (core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Document{}, &core.Error{Kind: core.KindDocNotFound, Path: path}
		}
		return core.Document{}, &core.Error{Kind: core.KindIO, Path: path, Err: err}
	}
	defer f.Close()

	doc, err := r.ser.Parse(f)
	if err != nil {
		return core.Document{}, core.WithContext(err, "", path)
	}
	return doc, nil
}

// Get locates and parses a document by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (core.Document, string, error) {
	path, err := r.Locate(ctx, id)
	if err != nil {
		return core.Document{}, "", err
	}
	doc, err := r.Load(path)
	if err != nil {
		return core.Document{}, "", core.WithContext(err, id.String(), path)
	}
	return doc, path, nil
}

// Save serializes doc and atomically replaces the file at path.
func (r *Repository) Save(ctx context.Context, path string, doc core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := r.ser.Serialize(doc)
	if err != nil {
		return core.WithContext(err, doc.ID.String(), path)
	}
	if err := WriteFileAtomic(path, data, 0644); err != nil {
		return core.WithContext(err, doc.ID.String(), path)
	}
	r.remember(path, doc.ID.String(), doc.Type)
	return nil
}

// List scans docs/ for files matching pattern (a doublestar glob relative to
// docs/, "**/*.md" when empty) and returns one entry per parseable document.
// Unparseable files are skipped.
func (r *Repository) List(ctx context.Context, pattern string) ([]core.Entry, error) {
	full := pattern == ""
	if full {
		pattern = "**/*" + DocExt
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &core.Error{Kind: core.KindInvalidArgument, Msg: fmt.Sprintf("invalid glob pattern %q", pattern)}
	}
	if !isDir(r.DocsPath()) {
		return []core.Entry{}, nil
	}

	r.loadCache()
	matches, err := doublestar.Glob(os.DirFS(r.DocsPath()), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &core.Error{Kind: core.KindIO, Msg: "failed to scan documents", Err: err}
	}
	slices.Sort(matches)

	entries := make([]core.Entry, 0, len(matches))
	seen := make(map[string]bool)
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if filepath.Ext(rel) != DocExt {
			continue
		}
		path := filepath.Join(r.DocsPath(), filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		seen[rel] = true

		if entry, hit := r.cache.Get(rel, info.ModTime()); hit && entry.Type != "" {
			entries = append(entries, core.Entry{ID: entry.ID, Type: entry.Type, Path: path})
			continue
		}

		doc, err := r.Load(path)
		if err != nil {
			if r.config.Logger != nil {
				r.config.Logger.Debug("skipping unparseable document", "path", path, "error", err)
			}
			continue
		}
		r.cache.Set(rel, &indexEntry{ID: doc.ID.String(), Type: doc.Type, LastModified: info.ModTime()})
		entries = append(entries, core.Entry{ID: doc.ID.String(), Type: doc.Type, Path: path})
	}

	if full {
		r.cache.Prune(seen)
	}
	if err := r.cache.Save(); err != nil {
		r.logWarn("failed to save index", "error", err)
	}

	r.mu.Lock()
	r.lastScan = len(entries)
	r.mu.Unlock()
	return entries, nil
}

// remember records the location of a document in the index.
func (r *Repository) remember(path, id, typ string) {
	rel, err := filepath.Rel(r.DocsPath(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	r.loadCache()
	entry := &indexEntry{ID: id, Type: typ}
	if info, err := os.Stat(path); err == nil {
		entry.LastModified = info.ModTime()
	}
	r.cache.Set(filepath.ToSlash(rel), entry)
}

func (r *Repository) logWarn(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Warn(msg, args...)
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
