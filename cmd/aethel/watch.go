package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel/pkg/adapters/fs"
	"github.com/aethel-dev/aethel/pkg/adapters/lifecycle"
	"github.com/aethel-dev/aethel/pkg/core"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		glob   string
		types  []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print document changes until interrupted",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
				return err
			}
			kinds, err := eventTypes(types)
			if err != nil {
				return err
			}
			v, err := a.openVault()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := v.Watch(ctx)
			if err != nil {
				return err
			}
			src, err := lifecycle.NewSource(filepath.Join(v.Root(), fs.DocsDir), events,
				lifecycle.OnlyTypes(kinds...), lifecycle.Matching(glob))
			if err != nil {
				return err
			}
			if err := src.Start(ctx); err != nil {
				return err
			}

			a.logger.Info("watching vault", "root", v.Root(), "glob", glob)
			enc := json.NewEncoder(a.stdout)
			for e := range src.Events() {
				if output == "json" {
					if err := enc.Encode(e); err != nil {
						return &core.Error{Kind: core.KindJSONProcessing, Err: err}
					}
					continue
				}
				fmt.Fprintln(a.stdout, e.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&glob, "glob", "", `Only report paths below docs/ matching a pattern such as "2024/**"`)
	cmd.Flags().StringSliceVar(&types, "type", nil, "Only report these changes (create, modify, delete)")
	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format (human, json lines)")
	return cmd
}

func eventTypes(names []string) ([]core.EventType, error) {
	var out []core.EventType
	for _, name := range names {
		switch t := core.EventType(strings.ToUpper(name)); t {
		case core.EventCreate, core.EventModify, core.EventDelete:
			out = append(out, t)
		default:
			return nil, &core.Error{Kind: core.KindInvalidArgument, Got: name, Expected: "create, modify or delete", Msg: "unknown change type"}
		}
	}
	return out, nil
}
