package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel/pkg/core"
)

func newDocsCmd(a *app) *cobra.Command {
	var (
		glob   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List the documents of the vault",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
				return err
			}
			v, err := a.openVault()
			if err != nil {
				return err
			}
			entries, err := v.List(cmd.Context(), glob)
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(a.stdout, entries)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Type, e.Path)
			}
			if err := tw.Flush(); err != nil {
				return &core.Error{Kind: core.KindIO, Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&glob, "glob", "", `Only list paths below docs/ matching a pattern such as "2024/**"`)
	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format (human, json)")
	return cmd
}
