package pack

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aethel-dev/aethel/pkg/core"
)

// Install validates the pack in src and copies it to <root>/packs/<name>@<version>.
// The copy is staged in a temporary directory and renamed into place.
func Install(root, src string) (*Pack, error) {
	p, err := Load(src)
	if err != nil {
		return nil, err
	}

	packsDir := filepath.Join(root, "packs")
	if err := os.MkdirAll(packsDir, 0755); err != nil {
		return nil, &core.Error{Kind: core.KindIO, Path: packsDir, Err: err}
	}

	dest := filepath.Join(packsDir, p.DirName())
	if _, err := os.Stat(dest); err == nil {
		return nil, &core.Error{Kind: core.KindPackAlreadyInstalled, Name: p.DirName(), Path: dest}
	}

	staging, err := os.MkdirTemp(packsDir, ".aethel-tmp-pack-*")
	if err != nil {
		return nil, &core.Error{Kind: core.KindIO, Path: packsDir, Err: err}
	}
	defer os.RemoveAll(staging)

	if err := os.CopyFS(staging, os.DirFS(src)); err != nil {
		return nil, &core.Error{Kind: core.KindIO, Path: src, Msg: "failed to copy pack", Err: err}
	}
	if err := os.Rename(staging, dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, &core.Error{Kind: core.KindPackAlreadyInstalled, Name: p.DirName(), Path: dest}
		}
		return nil, &core.Error{Kind: core.KindPersistFailed, Path: dest, Err: err}
	}

	return Load(dest)
}

// Remove deletes every installed version of the named pack.
// It reports whether anything was removed.
func Remove(root, name string) (bool, error) {
	if !ValidName(name) {
		return false, &core.Error{Kind: core.KindInvalidArgument, Name: name, Msg: "invalid pack name"}
	}

	packsDir := filepath.Join(root, "packs")
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &core.Error{Kind: core.KindIO, Path: packsDir, Err: err}
	}

	removed := false
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), name+"@") {
			continue
		}
		path := filepath.Join(packsDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, &core.Error{Kind: core.KindIO, Path: path, Err: err}
		}
		removed = true
	}
	return removed, nil
}
