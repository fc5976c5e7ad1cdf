package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/aethel-dev/aethel/pkg/core"
)

const (
	// TempFilePrefix is the prefix used for temporary atomic write files.
	// Temp files carry no extension so directory scans never mistake them for documents.
	TempFilePrefix = ".aethel-tmp-"
)

// renameFile replaces the destination with the fully written temp file.
// Tests swap it to simulate a crash between write and rename.
var renameFile = atomic.ReplaceFile

// WriteFileAtomic writes data to a file atomically by writing to a temp file
// in the same directory and then renaming it over the target.
// Readers observe either the previous content or the new content, never a mix.
// A failure of the final rename is reported as KindPersistFailed.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &core.Error{Kind: core.KindIO, Path: filename, Msg: "failed to create directory", Err: err}
	}

	// Create a temporary file in the same directory to ensure atomic rename
	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return &core.Error{Kind: core.KindIO, Path: filename, Msg: "failed to create temp file", Err: err}
	}
	defer os.Remove(tmpFile.Name()) // Clean up if we fail before rename

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return &core.Error{Kind: core.KindIO, Path: filename, Msg: "failed to write to temp file", Err: err}
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &core.Error{Kind: core.KindIO, Path: filename, Msg: "failed to sync temp file", Err: err}
	}

	if err := tmpFile.Close(); err != nil {
		return &core.Error{Kind: core.KindIO, Path: filename, Msg: "failed to close temp file", Err: err}
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return &core.Error{Kind: core.KindIO, Path: filename, Msg: "failed to chmod temp file", Err: err}
	}

	if err := renameFile(tmpFile.Name(), filename); err != nil {
		return &core.Error{Kind: core.KindPersistFailed, Path: filename, Msg: fmt.Sprintf("failed to rename temp file to %s", filename), Err: err}
	}

	return nil
}
