package main

import (
	"github.com/spf13/cobra"

	"github.com/aethel-dev/aethel"
)

type checkOutput struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Valid bool   `json:"valid"`
}

func newCheckCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Validate a stored document against its pack",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := outputFlag(output, "human", "json"); err != nil {
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
			doc, err := v.Check(cmd.Context(), id)
			if err != nil {
				if output == "human" && doc.Type != "" {
					failure(a.stdout, "%s (%s) is invalid", id, doc.Type)
				}
				return err
			}

			if output == "json" {
				return writeJSON(a.stdout, checkOutput{ID: id.String(), Type: doc.Type, Valid: true})
			}
			success(a.stdout, "%s (%s) is valid", id, doc.Type)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format (human, json)")
	return cmd
}
