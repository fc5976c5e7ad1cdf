package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel"
	"github.com/aethel-dev/aethel/pkg/core"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize a vault",
		Long:  `Create docs/, packs/ and the state directory in path (default: the current directory).`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.VaultRoot
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return &core.Error{Kind: core.KindIO, Err: err}
				}
				path = cwd
			}

			opts, err := a.options()
			if err != nil {
				return err
			}
			v, err := aethel.Init(path, opts...)
			if err != nil {
				return err
			}

			success(a.stdout, "Initialized aethel vault in %s", filepath.Clean(v.Root()))
			return nil
		},
	}
}
