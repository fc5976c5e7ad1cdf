// Package config loads CLI settings from aethel.yaml, AETHEL_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AETHEL"

// Config holds the CLI configuration.
type Config struct {
	VaultRoot   string        `mapstructure:"vault_root"`
	SystemDir   string        `mapstructure:"system_dir"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
	ProcessLock bool          `mapstructure:"process_lock"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	// TestMode unlocks the deterministic clock and id flags.
	TestMode bool `mapstructure:"test_mode"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"vault":        "vault_root",
	"system-dir":   "system_dir",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"process-lock": "process_lock",
	"lock-timeout": "lock_timeout",
}

// Load reads the configuration. file names an explicit config file; when empty,
// aethel.yaml is searched in the working directory and $HOME/.config/aethel.
// flags may be nil; only flags the user actually set override other sources.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("vault_root", "")
	v.SetDefault("system_dir", ".aethel")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("process_lock", false)
	v.SetDefault("lock_timeout", "5s")
	v.SetDefault("test_mode", false)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("aethel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "aethel"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got: %s", c.LogFormat)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must not be negative, got: %s", c.LockTimeout)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
