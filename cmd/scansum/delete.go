package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a scan's image blob (the manifest record is kept unless CASCADE_DELETE is set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := resolveUser(*user)
			if err != nil {
				return err
			}

			svcs, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}

			if err := svcs.gallery.Delete(cmd.Context(), u, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted:", args[0])
			return nil
		},
	}
}
