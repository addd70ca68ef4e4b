package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var user string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scansum",
		Short: "Scansum uploads scanned images, extracts their text, summarizes it, and tracks everything in a per-user manifest",
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&user, "user", "", "user the scans belong to (defaults to SCANSUM_USER)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(
		newIngestCmd(&user, &jsonOutput),
		newListCmd(&user, &jsonOutput),
		newDeleteCmd(&user),
	)

	return cmd
}
