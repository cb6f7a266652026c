package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var modelsCmd = &cobra.Command{
	Use:         "models",
	Short:       "List the generation models that can answer questions",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationSettingsOnly: "true"},
	RunE:        runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	if modelRegistry == nil {
		return errModelsNotConfigured
	}

	available := modelRegistry.Available()
	def := modelRegistry.Default()

	providers := make([]domain.AIProvider, 0, len(available))
	for p := range available {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })

	for _, p := range providers {
		cmd.Printf("%s:\n", p.Description())
		for _, name := range available[p] {
			ref := domain.ModelRef{Provider: p, Name: name}
			marker := " "
			if ref == def {
				marker = "*"
			}
			cmd.Printf("  %s %s\n", marker, ref)
		}
	}
	cmd.Println()
	cmd.Printf("Default: %s\n", def)
	return nil
}
