package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var ingestMimeType string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Upload files to the document index",
	Long: `Reads each file, splits it into chunks, embeds them and adds them to the index.

Files are committed one by one; ingestion stops at the first failure and
files with no extractable text are reported as skipped. Plain text, Markdown
and HTML are supported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMimeType, "mime-type", "", "content type of every file (detected when empty)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	reqs := make([]driving.IngestRequest, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		reqs = append(reqs, driving.IngestRequest{
			Filename: filepath.Base(path),
			MimeType: ingestMimeType,
			Content:  content,
		})
	}

	results, err := documentService.IngestBatch(cmd.Context(), reqs)
	for _, r := range results {
		if r.Skipped {
			cmd.Printf("Skipped %s: no extractable text\n", r.Filename)
			continue
		}
		cmd.Printf("Ingested %s: %d chunks (%s)\n", r.Filename, r.Chunks, r.DocumentID)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}
