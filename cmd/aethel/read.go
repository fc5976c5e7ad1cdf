package main

import (
	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel"
	"github.com/aethel-dev/aethel/pkg/adapters/fs"
	"github.com/aethel-dev/aethel/pkg/core"
)

// readOutput is the JSON shape of a document.
type readOutput struct {
	Frontmatter map[string]any `json:"frontmatter"`
	Body        string         `json:"body"`
}

func newReadCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Print a document",
		Long:  `Print a document as Markdown (default) or as JSON {frontmatter, body}.`,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "md", "json"); err != nil {
				return err
			}
			id, err := aethel.ParseID(args[0])
			if err != nil {
				return err
			}

			v, err := a.openVault()
			if err != nil {
				return err
			}
			doc, err := v.Read(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(a.stdout, readOutput{Frontmatter: doc.Frontmatter(), Body: doc.Body})
			}
			data, err := fs.SerializeMarkdown(doc)
			if err != nil {
				return err
			}
			if _, err := a.stdout.Write(data); err != nil {
				return &core.Error{Kind: core.KindIO, Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "md", "Output format (md, json)")
	return cmd
}
