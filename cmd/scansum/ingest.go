package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scansum/internal/usecase"
)

func newIngestCmd(user *string, jsonOutput *bool) *cobra.Command {
	var fileName string
	var contentType string

	cmd := &cobra.Command{
		Use:   "ingest <image-file>",
		Short: "Upload an image, run OCR and summarization, and record it in the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := resolveUser(*user)
			if err != nil {
				return err
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(args[0]))
			}

			svcs, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}

			out, err := svcs.ingest.Ingest(cmd.Context(), usecase.IngestInput{
				User:        u,
				Image:       image,
				FileName:    fileName,
				ContentType: contentType,
			})
			if err != nil {
				return err
			}

			if *jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out.Record)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "uploaded:", out.Record.ImageURL)
			fmt.Fprintln(cmd.OutOrStdout(), "summary:", out.Record.Summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileName, "name", "", "blob filename (defaults to <epoch-ms>.jpg)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (defaults from the file extension)")

	return cmd
}
