package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel"
	"github.com/aethel-dev/aethel/internal/config"
	"github.com/aethel-dev/aethel/pkg/core"
)

// app carries the state shared by every command of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile string
	now        string
	idSeed     string

	cfg    *config.Config
	logger *slog.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		// Everything below the root returns *core.Error; the rest are cobra usage errors.
		var ce *core.Error
		if !errors.As(err, &ce) {
			err = &core.Error{Kind: core.KindInvalidArgument, Err: err}
		}
		writeError(stderr, err)
		return exitCode(err)
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aethel",
		Short: "A schema-validated document vault for Markdown + front matter",
		Long: `Aethel stores records as Markdown files with YAML front matter.
Every write is a patch, validated against the JSON Schema of the document's pack.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default ./aethel.yaml)")
	flags.String("vault", "", "Vault root (default: nearest parent holding docs/ and packs/)")
	flags.String("system-dir", ".aethel", "Name of the vault's state directory")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.Bool("process-lock", false, "Take a lock file around writes")
	flags.Duration("lock-timeout", 5*time.Second, "Wait for the lock file")
	flags.StringVar(&a.now, "now", "", "Fixed RFC 3339 timestamp for writes (test mode only)")
	flags.StringVar(&a.idSeed, "id-seed", "", "Seed for deterministic ids (test mode only)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &core.Error{Kind: core.KindInvalidArgument, Err: err}
	})

	cmd.AddCommand(
		newInitCmd(a),
		newWriteCmd(a),
		newReadCmd(a),
		newCheckCmd(a),
		newDocsCmd(a),
		newPacksCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return &core.Error{Kind: core.KindInvalidArgument, Err: err}
	}
	level, err := cfg.Level()
	if err != nil {
		return &core.Error{Kind: core.KindInvalidArgument, Err: err}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(a.stderr, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(a.stderr, opts)
	}
	a.cfg = cfg
	a.logger = slog.New(handler)

	if !cfg.TestMode && (a.now != "" || a.idSeed != "") {
		return &core.Error{Kind: core.KindInvalidArgument, Msg: "--now and --id-seed require AETHEL_TEST_MODE=1"}
	}
	return nil
}

// options translates the configuration into vault options.
func (a *app) options() ([]aethel.Option, error) {
	opts := []aethel.Option{
		aethel.WithLogger(a.logger),
		aethel.WithSystemDir(a.cfg.SystemDir),
		aethel.WithProcessLock(a.cfg.ProcessLock),
		aethel.WithLockTimeout(a.cfg.LockTimeout),
	}
	if a.now != "" {
		t, err := time.Parse(time.RFC3339Nano, a.now)
		if err != nil {
			return nil, &core.Error{Kind: core.KindInvalidTimestampFormat, Field: "now", Got: a.now, Err: err}
		}
		opts = append(opts, aethel.WithFixedTime(t))
	}
	if a.idSeed != "" {
		opts = append(opts, aethel.WithIDSeed(a.idSeed))
	}
	return opts, nil
}

// openVault opens the configured vault, or the nearest one above the
// working directory.
func (a *app) openVault() (*aethel.Vault, error) {
	root := a.cfg.VaultRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, &core.Error{Kind: core.KindIO, Err: err}
		}
		found, err := aethel.FindVaultRoot(cwd)
		if err != nil {
			return nil, &core.Error{Kind: core.KindDocNotFound, Path: cwd, Msg: "vault root not found", Err: err}
		}
		root = found
	}

	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return aethel.Open(root, append(opts, aethel.WithMustExist(true))...)
}

// exactArgs is cobra.ExactArgs reporting an InvalidArgument error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &core.Error{Kind: core.KindInvalidArgument, Err: err}
		}
		return nil
	}
}

// outputFlag validates a --output value against the allowed formats.
func outputFlag(value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &core.Error{Kind: core.KindInvalidArgument, Field: "output", Got: value, Msg: fmt.Sprintf("expected one of %v", allowed)}
}
