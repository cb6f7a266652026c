package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/watch"
)

var (
	watchExisting   bool
	watchExtensions []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest new files as they appear in a directory",
	Long: `Watch a directory and ingest every new text or Markdown file once it
stops changing. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also ingest files already in the directory")
	watchCmd.Flags().StringSliceVar(&watchExtensions, "ext", watch.DefaultExtensions, "file extensions to ingest")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	w, err := watch.New(documentService, args[0], watch.Options{
		Extensions: watchExtensions,
		Existing:   watchExisting,
		OnResult: func(r watch.Result) {
			switch {
			case r.Err != nil:
				cmd.PrintErrf("Failed %s: %v\n", r.Path, r.Err)
			case r.Result.Skipped:
				cmd.Printf("Skipped %s: no extractable text\n", r.Path)
			default:
				cmd.Printf("Ingested %s: %d chunks (%s)\n", r.Path, r.Result.Chunks, r.Result.DocumentID)
			}
		},
	})
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s\n", args[0])
	return w.Run(cmd.Context())
}
