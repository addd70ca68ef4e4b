package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(user *string, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded scans joined with their OCR text and summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := resolveUser(*user)
			if err != nil {
				return err
			}

			svcs, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}

			items, err := svcs.gallery.List(cmd.Context(), u)
			if err != nil {
				return err
			}

			if *jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSUMMARY")
			for _, item := range items {
				summary := item.Summary
				if summary == "" {
					summary = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", item.ID, item.Name, summary)
			}
			return w.Flush()
		},
	}
}
