package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aethel-dev/aethel/pkg/core"
)

const testNow = "2024-07-29T10:00:00Z"

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// setupEnv isolates the CLI from the user's config and enables test mode.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("AETHEL_TEST_MODE", "1")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeMorningPack(t *testing.T, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "src", "journal")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "types"), 0755))
	manifest := `{
		"name": "journal",
		"version": "1.0.0",
		"protocolVersion": "0.1.0",
		"types": [{"id": "journal.morning", "version": "1.0.0", "schema": "types/morning.json"}],
	}`
	schema := `{
		"type": "object",
		"required": ["mood"],
		"properties": {
			"mood": {"type": "string", "enum": ["calm", "tired", "happy"]},
			"energy": {"type": "integer", "minimum": 0, "maximum": 10}
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(src, "pack.json"), []byte(manifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "types", "morning.json"), []byte(schema), 0644))
	return src
}

// newVault initializes a vault with the journal pack and returns its root.
func newVault(t *testing.T, dir string) string {
	t.Helper()
	root := filepath.Join(dir, "vault")
	res := runCLI(t, "", "init", root)
	require.Equal(t, 0, res.code, res.stderr)
	res = runCLI(t, "", "--vault", root, "packs", "add", writeMorningPack(t, dir))
	require.Equal(t, 0, res.code, res.stderr)
	return root
}

func TestCLI_Lifecycle(t *testing.T) {
	dir := setupEnv(t)
	root := newVault(t, dir)
	base := []string{"--vault", root, "--now", testNow, "--id-seed", "cafe"}

	create := `{"mode": "create", "type": "journal.morning", "frontmatter": {"mood": "calm", "energy": 7}, "body": "Woke early."}`
	res := runCLI(t, create, append(base, "write", "--json", "-", "--output", "json")...)
	require.Equal(t, 0, res.code, res.stderr)

	var written core.WriteResult
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &written))
	assert.True(t, written.Committed)
	assert.Equal(t, []string{}, written.Warnings)
	assert.Equal(t, filepath.Join("docs", written.ID.String()+".md"), mustRel(t, root, written.Path))

	t.Run("Read JSON", func(t *testing.T) {
		res := runCLI(t, "", "--vault", root, "read", written.ID.String(), "--output", "json")
		require.Equal(t, 0, res.code, res.stderr)

		var out struct {
			Frontmatter map[string]any `json:"frontmatter"`
			Body        string         `json:"body"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
		assert.Equal(t, "Woke early.", out.Body)
		assert.Equal(t, "calm", out.Frontmatter["mood"])
		assert.Equal(t, "journal.morning", out.Frontmatter["type"])
		assert.Equal(t, "1.0.0", out.Frontmatter["schemaVersion"])
		assert.Equal(t, testNow, out.Frontmatter["created"])
	})

	t.Run("Read Markdown", func(t *testing.T) {
		res := runCLI(t, "", "--vault", root, "read", written.ID.String())
		require.Equal(t, 0, res.code, res.stderr)

		raw, err := os.ReadFile(written.Path)
		require.NoError(t, err)
		assert.Equal(t, string(raw), res.stdout)
	})

	t.Run("Merge Without Change", func(t *testing.T) {
		patch := `{"mode": "merge_frontmatter", "id": "` + written.ID.String() + `", "frontmatter": {"energy": 7.0}}`
		res := runCLI(t, patch, append(base, "write", "--json", "-", "--output", "json")...)
		require.Equal(t, 0, res.code, res.stderr)

		var again core.WriteResult
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &again))
		assert.False(t, again.Committed)
		assert.Equal(t, written.ID, again.ID)
	})

	t.Run("Append From File", func(t *testing.T) {
		file := filepath.Join(dir, "append.json")
		patch := `{"mode": "append", "id": "` + written.ID.String() + `", "body": "Tea."}`
		require.NoError(t, os.WriteFile(file, []byte(patch), 0644))

		res := runCLI(t, "", append(base, "write", "--json", file)...)
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Document written")

		res = runCLI(t, "", "--vault", root, "read", written.ID.String(), "--output", "json")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, `"body": "Woke early.\n\nTea."`)
	})

	t.Run("Check", func(t *testing.T) {
		res := runCLI(t, "", "--vault", root, "check", written.ID.String(), "--output", "json")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, `"valid": true`)
	})

	t.Run("Docs", func(t *testing.T) {
		res := runCLI(t, "", "--vault", root, "docs", "--output", "json")
		require.Equal(t, 0, res.code, res.stderr)

		var entries []core.Entry
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, written.ID.String(), entries[0].ID)
		assert.Equal(t, "journal.morning", entries[0].Type)
	})

	t.Run("Packs List", func(t *testing.T) {
		res := runCLI(t, "", "--vault", root, "packs", "list")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "journal@1.0.0")
		assert.Contains(t, res.stdout, "journal.morning")
	})

	t.Run("Vault Discovery", func(t *testing.T) {
		require.NoError(t, os.Chdir(filepath.Join(root, "docs")))
		res := runCLI(t, "", "read", written.ID.String(), "--output", "json")
		require.Equal(t, 0, res.code, res.stderr)
		require.NoError(t, os.Chdir(dir))
	})
}

func TestCLI_Deterministic(t *testing.T) {
	dir := setupEnv(t)
	create := `{"mode": "create", "type": "journal.morning", "frontmatter": {"mood": "happy"}}`

	var files []string
	for _, name := range []string{"a", "b"} {
		root := newVault(t, filepath.Join(dir, name))
		res := runCLI(t, create, "--vault", root, "--now", testNow, "--id-seed", "00ff", "write", "--json", "-", "--output", "json")
		require.Equal(t, 0, res.code, res.stderr)

		var written core.WriteResult
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &written))
		raw, err := os.ReadFile(written.Path)
		require.NoError(t, err)
		files = append(files, string(raw))
	}
	assert.Equal(t, files[0], files[1])
}

func TestCLI_Errors(t *testing.T) {
	dir := setupEnv(t)
	root := newVault(t, dir)
	missing := "0190f1b2-7c3d-7e4f-8a9b-0c1d2e3f4a5b"

	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantExit int
		wantCode int
	}{
		{
			name:     "Malformed JSON",
			stdin:    `{"mode": `,
			args:     []string{"write", "--json", "-"},
			wantExit: 2,
			wantCode: 40000,
		},
		{
			name:     "Reserved Key",
			stdin:    `{"mode": "create", "type": "journal.morning", "frontmatter": {"uuid": "x", "mood": "calm"}}`,
			args:     []string{"write", "--json", "-"},
			wantExit: 2,
			wantCode: 40003,
		},
		{
			name:     "Invalid ID",
			args:     []string{"read", "not-a-uuid"},
			wantExit: 2,
			wantCode: 40005,
		},
		{
			name:     "Unknown Output",
			args:     []string{"read", missing, "--output", "yaml"},
			wantExit: 2,
			wantCode: 40012,
		},
		{
			name:     "Document Not Found",
			args:     []string{"read", missing},
			wantExit: 3,
			wantCode: 40401,
		},
		{
			name:     "Unknown Pack",
			stdin:    `{"mode": "create", "type": "garden.plant"}`,
			args:     []string{"write", "--json", "-"},
			wantExit: 3,
			wantCode: 40402,
		},
		{
			name:     "Pack Already Installed",
			args:     []string{"packs", "add", filepath.Join(dir, "src", "journal")},
			wantExit: 4,
			wantCode: 40901,
		},
		{
			name:     "Schema Violation",
			stdin:    `{"mode": "create", "type": "journal.morning", "frontmatter": {"mood": "angry"}}`,
			args:     []string{"write", "--json", "-"},
			wantExit: 5,
			wantCode: 42200,
		},
		{
			name:     "Remove Unknown Pack",
			args:     []string{"packs", "remove", "garden"},
			wantExit: 3,
			wantCode: 40402,
		},
		{
			name:     "Watch Unknown Change Type",
			args:     []string{"watch", "--type", "rename"},
			wantExit: 2,
			wantCode: 40012,
		},
		{
			name:     "Watch Bad Pattern",
			args:     []string{"watch", "--glob", "[unclosed"},
			wantExit: 2,
			wantCode: 40012,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.stdin, append([]string{"--vault", root}, tt.args...)...)
			assert.Equal(t, tt.wantExit, res.code, res.stderr)

			var resp core.Response
			require.NoError(t, json.Unmarshal([]byte(res.stderr), &resp), res.stderr)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("Schema Violation Data", func(t *testing.T) {
		stdin := `{"mode": "create", "type": "journal.morning", "frontmatter": {"mood": "calm", "energy": 11}}`
		res := runCLI(t, stdin, "--vault", root, "write", "--json", "-")
		require.Equal(t, 5, res.code)

		var resp core.Response
		require.NoError(t, json.Unmarshal([]byte(res.stderr), &resp))
		assert.Equal(t, "/energy", resp.Data.Pointer)
		assert.Equal(t, "11", resp.Data.Got)
	})
}

func TestCLI_TestModeFlags(t *testing.T) {
	dir := setupEnv(t)
	root := newVault(t, dir)
	t.Setenv("AETHEL_TEST_MODE", "")

	res := runCLI(t, "", "--vault", root, "--now", testNow, "docs")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "AETHEL_TEST_MODE")

	res = runCLI(t, "", "--vault", root, "docs")
	assert.Equal(t, 0, res.code, res.stderr)
}

func TestCLI_NoVault(t *testing.T) {
	setupEnv(t)
	res := runCLI(t, "", "docs")
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.stderr, "vault root not found")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		kind core.Kind
		want int
	}{
		{core.KindMalformedRequestJSON, 2},
		{core.KindInvalidArgument, 2},
		{core.KindDocNotFound, 3},
		{core.KindSchemaFileNotFound, 3},
		{core.KindTypeMismatchOnUpdate, 4},
		{core.KindConcurrentWriteConflict, 4},
		{core.KindSchemaValidation, 5},
		{core.KindProtocolVersionMismatch, 5},
		{core.KindIO, 1},
		{core.KindLockFile, 1},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(&core.Error{Kind: tt.kind}))
		})
	}
}

func mustRel(t *testing.T, root, path string) string {
	t.Helper()
	rel, err := filepath.Rel(root, path)
	require.NoError(t, err)
	return rel
}

func TestEventTypes(t *testing.T) {
	got, err := eventTypes([]string{"create", "DELETE"})
	require.NoError(t, err)
	assert.Equal(t, []core.EventType{core.EventCreate, core.EventDelete}, got)

	got, err = eventTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = eventTypes([]string{"rename"})
	assert.Equal(t, core.KindInvalidArgument, core.KindOf(err))
}
