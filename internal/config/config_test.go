package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}
	if cfg.SystemDir != ".aethel" {
		t.Errorf("expected default system dir .aethel, got %s", cfg.SystemDir)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("expected default lock timeout 5s, got %s", cfg.LockTimeout)
	}
	if cfg.TestMode {
		t.Error("test mode must be off by default")
	}
	if level, _ := cfg.Level(); level != slog.LevelWarn {
		t.Errorf("expected warn level, got %s", level)
	}
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	content := "vault_root: /srv/vault\nlog_level: info\nprocess_lock: true\nlock_timeout: 250ms\n"
	if err := os.WriteFile(filepath.Join(dir, "aethel.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AETHEL_LOG_LEVEL", "debug")
	t.Setenv("AETHEL_TEST_MODE", "1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("vault", "", "")
	flags.String("log-format", "text", "")
	if err := flags.Parse([]string{"--log-format", "json"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.VaultRoot != "/srv/vault" {
		t.Errorf("unset flag must not override the file, got %q", cfg.VaultRoot)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("env must override the file, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("flag must win, got %q", cfg.LogFormat)
	}
	if !cfg.ProcessLock || cfg.LockTimeout != 250*time.Millisecond {
		t.Errorf("unexpected lock settings: %v %s", cfg.ProcessLock, cfg.LockTimeout)
	}
	if !cfg.TestMode {
		t.Error("AETHEL_TEST_MODE=1 must enable test mode")
	}
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	t.Run("Missing Explicit File", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})

	t.Run("Bad Level", func(t *testing.T) {
		t.Setenv("AETHEL_LOG_LEVEL", "loud")
		if _, err := Load("", nil); err == nil {
			t.Error("expected error for invalid log level")
		}
	})

	t.Run("Bad Format", func(t *testing.T) {
		t.Setenv("AETHEL_LOG_FORMAT", "xml")
		if _, err := Load("", nil); err == nil {
			t.Error("expected error for invalid log format")
		}
	})
}
