package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		tmpDir := t.TempDir()
		c := newCache(tmpDir, ".aethel")

		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Loads Valid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".aethel")
		os.MkdirAll(cacheDir, 0755)

		jsonContent := `{
			"version": 1,
			"entries": {
				"sub/abc.md": {"id": "abc", "type": "journal.entry"}
			}
		}`
		os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(jsonContent), 0644)

		c := newCache(tmpDir, ".aethel")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		entry, ok := c.index.Entries["sub/abc.md"]
		if !ok {
			t.Fatal("Expected entry sub/abc.md not found")
		}
		if entry.Type != "journal.entry" {
			t.Errorf("Expected type 'journal.entry', got '%s'", entry.Type)
		}
		if rel, ok := c.Lookup("abc"); !ok || rel != "sub/abc.md" {
			t.Errorf("Lookup(abc) = %q, %v", rel, ok)
		}
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".aethel")
		os.MkdirAll(cacheDir, 0755)
		os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte("{ invalid json"), 0644)

		c := newCache(tmpDir, ".aethel")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries after corruption, got %d", c.Len())
		}
	})
}

func TestCache_Save(t *testing.T) {
	t.Run("Does Not Save if Not Dirty", func(t *testing.T) {
		tmpDir := t.TempDir()
		c := newCache(tmpDir, ".aethel")

		if err := c.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := os.Stat(c.Path); !os.IsNotExist(err) {
			t.Error("Expected index.json NOT to exist")
		}
	})

	t.Run("Saves if Dirty", func(t *testing.T) {
		tmpDir := t.TempDir()
		c := newCache(tmpDir, ".aethel")

		c.Set("foo.md", &indexEntry{ID: "foo"})
		if err := c.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := os.Stat(c.Path); os.IsNotExist(err) {
			t.Fatal("Expected index.json to exist")
		}
		if c.index.dirty {
			t.Error("Expected dirty to be false after save")
		}

		reloaded := newCache(tmpDir, ".aethel")
		if err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		if _, ok := reloaded.Lookup("foo"); !ok {
			t.Error("Expected foo to survive reload")
		}
	})
}

func TestCache_Get_Set(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".aethel")

	now := time.Now().Truncate(time.Second)
	c.Set("test.md", &indexEntry{ID: "test", LastModified: now})

	t.Run("Hit with Same Mtime", func(t *testing.T) {
		got, hit := c.Get("test.md", now)
		if !hit {
			t.Fatal("Expected cache hit")
		}
		if got.ID != "test" {
			t.Errorf("Expected ID 'test', got '%s'", got.ID)
		}
	})

	t.Run("Miss with Different Mtime", func(t *testing.T) {
		if _, hit := c.Get("test.md", now.Add(time.Hour)); hit {
			t.Error("Expected cache miss due to mtime mismatch")
		}
	})

	t.Run("Miss with Missing Key", func(t *testing.T) {
		if _, hit := c.Get("ghost.md", now); hit {
			t.Error("Expected cache miss for missing key")
		}
	})
}

func TestCache_Prune(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".aethel")

	c.Set("keep.md", &indexEntry{ID: "keep"})
	c.Set("drop.md", &indexEntry{ID: "drop"})
	c.index.dirty = false

	c.Prune(map[string]bool{"keep.md": true})

	if _, ok := c.index.Entries["keep.md"]; !ok {
		t.Error("Expected keep.md to remain")
	}
	if _, ok := c.index.Entries["drop.md"]; ok {
		t.Error("Expected drop.md to be removed")
	}
	if !c.index.dirty {
		t.Error("Expected dirty to be true after pruning")
	}

	c.index.dirty = false
	c.Delete("ghost.md")
	if c.index.dirty {
		t.Error("Deleting a missing key should not mark the index dirty")
	}
}
