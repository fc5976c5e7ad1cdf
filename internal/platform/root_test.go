package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	// /tmp/
	//   vault/ (docs/, packs/)
	//     docs/
	//       nested/
	//   half/ (docs/ only)
	//   empty/

	baseDir := t.TempDir()
	vaultDir := filepath.Join(baseDir, "vault")
	nestedDir := filepath.Join(vaultDir, "docs", "nested")
	halfDir := filepath.Join(baseDir, "half")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, dir := range []string{nestedDir, filepath.Join(vaultDir, "packs"), filepath.Join(halfDir, "docs"), emptyDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{
			name:      "Start at Root",
			startPath: vaultDir,
			wantRoot:  vaultDir,
		},
		{
			name:      "Start Nested Deeply",
			startPath: nestedDir,
			wantRoot:  vaultDir,
		},
		{
			name:      "Docs Without Packs",
			startPath: halfDir,
			wantErr:   true,
		},
		{
			name:      "No Root Found",
			startPath: emptyDir,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindRoot() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != "" && filepath.Clean(got) != filepath.Clean(tt.wantRoot) {
				t.Errorf("FindRoot() = %v, want %v", got, tt.wantRoot)
			}
		})
	}
}
