package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel"
	"github.com/aethel-dev/aethel/pkg/pack"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of aethel",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "aethel version %s (protocol %s)\n", aethel.Version, pack.ProtocolVersion)
		},
	}
}
