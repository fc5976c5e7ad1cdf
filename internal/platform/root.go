package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aethel-dev/aethel/pkg/adapters/fs"
)

// FindRoot walks upwards from startDir looking for a vault root: a directory
// holding both docs/ and packs/. It returns the absolute path of the first one found.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isDir(filepath.Join(dir, fs.DocsDir)) && isDir(filepath.Join(dir, fs.PacksDir)) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no vault found in %s or any parent directory", abs)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
