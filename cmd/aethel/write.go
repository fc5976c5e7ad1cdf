package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel/pkg/core"
)

func newWriteCmd(a *app) *cobra.Command {
	var (
		source string
		output string
	)

	cmd := &cobra.Command{
		Use:   "write --json <-|file>",
		Short: "Apply a JSON patch to the vault",
		Long: `Read a patch object {mode, id, type, frontmatter, body} from stdin (--json -)
or from a file, and apply it. Nothing is written when the patch would not
change the document.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
				return err
			}

			var in io.Reader = a.stdin
			if source != "-" {
				f, err := os.Open(source)
				if err != nil {
					return &core.Error{Kind: core.KindIO, Path: source, Err: err}
				}
				defer f.Close()
				in = f
			}

			p, err := core.DecodePatch(in)
			if err != nil {
				return err
			}

			v, err := a.openVault()
			if err != nil {
				return err
			}
			res, err := v.ApplyPatch(cmd.Context(), p)
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(a.stdout, res)
			}
			if res.Committed {
				success(a.stdout, "Document written")
				detail(a.stdout, "id", res.ID)
				detail(a.stdout, "path", res.Path)
			} else {
				success(a.stdout, "No changes needed")
				detail(a.stdout, "id", res.ID)
			}
			for _, w := range res.Warnings {
				detail(a.stdout, "warning", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "json", "", `Patch source: "-" for stdin or a file path`)
	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format (human, json)")
	_ = cmd.MarkFlagRequired("json")
	return cmd
}
