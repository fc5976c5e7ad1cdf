package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel/pkg/core"
)

// packOutput is the JSON shape of an installed pack.
type packOutput struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ProtocolVersion string   `json:"protocolVersion"`
	Types           []string `json:"types"`
}

func newPacksCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Manage the schema packs of the vault",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "human", "Output format (human, json)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List installed packs",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
				return err
			}
			v, err := a.openVault()
			if err != nil {
				return err
			}
			packs, err := v.Packs()
			if err != nil {
				return err
			}

			out := make([]packOutput, 0, len(packs))
			for _, p := range packs {
				po := packOutput{Name: p.Name, Version: p.Version, ProtocolVersion: p.ProtocolVersion, Types: []string{}}
				for _, t := range p.Types {
					po.Types = append(po.Types, t.ID)
				}
				out = append(out, po)
			}
			if output == "json" {
				return writeJSON(a.stdout, out)
			}
			if len(out) == 0 {
				fmt.Fprintln(a.stdout, "No packs installed")
				return nil
			}
			for _, p := range out {
				fmt.Fprintf(a.stdout, "%s@%s\n", p.Name, p.Version)
				for _, t := range p.Types {
					detail(a.stdout, "type", t)
				}
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <dir>",
		Short: "Install the pack found in dir",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
				return err
			}
			v, err := a.openVault()
			if err != nil {
				return err
			}
			p, err := v.AddPack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "json" {
				return writeJSON(a.stdout, map[string]any{"name": p.Name, "version": p.Version, "path": p.Dir})
			}
			success(a.stdout, "Installed %s@%s", p.Name, p.Version)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Uninstall every version of a pack",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
				return err
			}
			v, err := a.openVault()
			if err != nil {
				return err
			}
			removed, err := v.RemovePack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return &core.Error{Kind: core.KindPackNotFound, Name: args[0]}
			}
			if output == "json" {
				return writeJSON(a.stdout, map[string]any{"name": args[0], "removed": true})
			}
			success(a.stdout, "Removed %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}
