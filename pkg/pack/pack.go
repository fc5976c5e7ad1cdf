// Package pack loads schema packs: named, versioned bundles of document types,
// each type bound to a JSON Schema compiled once at load time.
//
// A pack is a directory holding pack.json plus the schema files it references. Installed packs live in <vault>/packs/<name>@<version>.
package pack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"
	"golang.org/x/mod/semver"

	"github.com/aethel-dev/aethel/pkg/core"
	"github.com/aethel-dev/aethel/pkg/schema"
)

// Pack is a loaded, fully compiled pack. It is immutable after Load.
type Pack struct {
	Name            string
	Version         string
	ProtocolVersion string
	Dir             string
	Types           []*TypeEntry
}

// TypeEntry is one document type of a pack together with its compiled schema.
type TypeEntry struct {
	ID         string
	Version    string
	SchemaPath string
	Schema     *schema.Schema
}

// DirName is the installation directory name of p.
func (p *Pack) DirName() string {
	return p.Name + "@" + p.Version
}

// FindType returns the type entry with the exact id.
func (p *Pack) FindType(id string) (*TypeEntry, bool) {
	for _, t := range p.Types {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Load reads, validates and compiles the pack in dir.
// Loading is all-or-nothing: any invalid type or schema fails the whole pack.
func Load(dir string) (*Pack, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &core.Error{Kind: core.KindPackNotFound, Name: filepath.Base(dir), Path: manifestPath}
		}
		return nil, &core.Error{Kind: core.KindIO, Path: manifestPath, Err: err}
	}

	// pack.json may carry comments and trailing commas.
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, &core.Error{Kind: core.KindInvalidPackManifest, Path: manifestPath, Msg: "pack manifest is not valid JSON", Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(std, &m); err != nil {
		return nil, &core.Error{Kind: core.KindInvalidPackManifest, Path: manifestPath, Msg: "pack manifest has the wrong shape", Err: err}
	}
	if err := m.validate(); err != nil {
		return nil, core.WithContext(err, "", manifestPath)
	}

	p := &Pack{
		Name:            m.Name,
		Version:         m.Version,
		ProtocolVersion: m.ProtocolVersion,
		Dir:             dir,
		Types:           make([]*TypeEntry, 0, len(m.Types)),
	}
	for _, decl := range m.Types {
		entry, err := loadType(dir, decl)
		if err != nil {
			return nil, err
		}
		p.Types = append(p.Types, entry)
	}
	return p, nil
}

func loadType(dir string, decl TypeDecl) (*TypeEntry, error) {
	schemaPath, err := within(dir, decl.Schema)
	if err != nil {
		return nil, err
	}
	// Templates are rendered by clients; the loader only keeps them inside the pack.
	if decl.Template != "" {
		if _, err := within(dir, decl.Template); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &core.Error{Kind: core.KindSchemaFileNotFound, Name: decl.ID, Path: schemaPath}
		}
		return nil, &core.Error{Kind: core.KindIO, Path: schemaPath, Err: err}
	}
	compiled, err := schema.Compile(data)
	if err != nil {
		return nil, core.WithContext(err, "", schemaPath)
	}

	return &TypeEntry{
		ID:         decl.ID,
		Version:    decl.Version,
		SchemaPath: schemaPath,
		Schema:     compiled,
	}, nil
}

// within resolves a manifest-relative path and refuses paths leaving the pack.
func within(dir, rel string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", &core.Error{Kind: core.KindInvalidPackManifest, Path: rel, Msg: "path must stay inside the pack directory"}
	}
	return filepath.Join(dir, filepath.FromSlash(rel)), nil
}

// Skipped records a packs/ entry that discovery ignored.
type Skipped struct {
	Path   string
	Reason error
}

// Discover loads every pack under <root>/packs. Entries that are not
// directories or fail to load are returned in skipped rather than as errors.
// Hidden entries (.gitkeep and the like) are ignored without being reported.
// A missing packs/ directory yields no packs.
func Discover(root string) (packs []*Pack, skipped []Skipped, err error) {
	dir := filepath.Join(root, "packs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*Pack{}, nil, nil
		}
		return nil, nil, &core.Error{Kind: core.KindIO, Path: dir, Msg: "failed to read packs directory", Err: err}
	}

	packs = []*Pack{}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			skipped = append(skipped, Skipped{Path: path, Reason: errors.New("not a pack directory")})
			continue
		}
		p, err := Load(path)
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Reason: err})
			continue
		}
		packs = append(packs, p)
	}

	slices.SortFunc(packs, func(a, b *Pack) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return semver.Compare("v"+a.Version, "v"+b.Version)
	})
	return packs, skipped, nil
}

// LoadAll loads every valid pack under <root>/packs, silently skipping the rest.
func LoadAll(root string) ([]*Pack, error) {
	packs, _, err := Discover(root)
	return packs, err
}

// Resolve finds the pack and type entry governing typeID.
// The pack name is the part of typeID before the first '.'. When several
// versions of a pack are installed the highest version wins.
func Resolve(packs []*Pack, typeID string) (*Pack, *TypeEntry, error) {
	name := core.PackOf(typeID)

	var found *Pack
	for _, p := range packs {
		if p.Name != name {
			continue
		}
		if found == nil || semver.Compare("v"+p.Version, "v"+found.Version) > 0 {
			found = p
		}
	}
	if found == nil {
		return nil, nil, &core.Error{Kind: core.KindPackNotFound, Name: name}
	}

	entry, ok := found.FindType(typeID)
	if !ok {
		return found, nil, &core.Error{Kind: core.KindPackTypeNotFound, Name: typeID, Msg: fmt.Sprintf("pack %s@%s has no such type", found.Name, found.Version)}
	}
	return found, entry, nil
}
