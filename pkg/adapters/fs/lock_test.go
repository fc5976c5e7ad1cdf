package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aethel-dev/aethel/pkg/core"
)

func TestFileLock(t *testing.T) {
	t.Run("Acquire And Release", func(t *testing.T) {
		tmpDir := t.TempDir()
		lock := NewFileLock(tmpDir, "", time.Second)

		unlock, err := lock.Lock(context.Background())
		if err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}
		if _, err := os.Stat(lock.Path()); err != nil {
			t.Fatalf("Lock file not created: %v", err)
		}

		unlock()
		again, err := NewFileLock(tmpDir, "", 30*time.Millisecond).Lock(context.Background())
		if err != nil {
			t.Fatalf("Expected lock to be free after unlock, got %v", err)
		}
		again()
	})

	t.Run("Leftover File Does Not Block", func(t *testing.T) {
		tmpDir := t.TempDir()
		lock := NewFileLock(tmpDir, "", 30*time.Millisecond)
		if err := os.MkdirAll(filepath.Dir(lock.Path()), 0755); err != nil {
			t.Fatal(err)
		}
		// A writer that died mid-operation leaves the file but no kernel lock.
		if err := os.WriteFile(lock.Path(), []byte("99999999\n"), 0644); err != nil {
			t.Fatal(err)
		}

		unlock, err := lock.Lock(context.Background())
		if err != nil {
			t.Fatalf("Expected leftover lock file to be reclaimed, got %v", err)
		}
		unlock()
	})

	t.Run("Times Out While Held", func(t *testing.T) {
		tmpDir := t.TempDir()
		holder := NewFileLock(tmpDir, "", time.Second)
		unlock, err := holder.Lock(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		defer unlock()

		contender := NewFileLock(tmpDir, "", 30*time.Millisecond)
		_, err = contender.Lock(context.Background())
		if core.KindOf(err) != core.KindConcurrentWriteConflict {
			t.Fatalf("Expected concurrent write conflict, got %v", err)
		}
	})

	t.Run("Waits For Release", func(t *testing.T) {
		tmpDir := t.TempDir()
		holder := NewFileLock(tmpDir, "", time.Second)
		unlock, err := holder.Lock(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		go func() {
			time.Sleep(30 * time.Millisecond)
			unlock()
		}()

		contender := NewFileLock(tmpDir, "", 2*time.Second)
		release, err := contender.Lock(context.Background())
		if err != nil {
			t.Fatalf("Expected lock after release, got %v", err)
		}
		release()
	})

	t.Run("Honours Context", func(t *testing.T) {
		tmpDir := t.TempDir()
		holder := NewFileLock(tmpDir, "", time.Second)
		unlock, _ := holder.Lock(context.Background())
		defer unlock()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewFileLock(tmpDir, "", time.Minute).Lock(ctx); err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
