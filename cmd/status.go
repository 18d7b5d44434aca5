package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarnished-labs/lorekeeper/internal/config"
	"github.com/tarnished-labs/lorekeeper/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index statistics",
	Long: `Show what the vector index currently holds: the collection name,
how many chunks are stored, and the embedding model and dimension they
were written with.

Required environment variables:
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  lorekeeper status
  lorekeeper status --config prod.yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	if cfg.Index.Provider == "memory" {
		fmt.Println(mutedStyle.Render("Index provider is in-memory; nothing is persisted between runs."))
		return nil
	}

	index, err := orchestrator.NewVectorIndex(ctx, cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("%s Failed to connect to vector index: %w", errorStyle.Render("Error:"), err)
	}
	defer index.Close()

	stats, err := index.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("%s Failed to read index stats: %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(headerStyle.Render("Index status"))
	fmt.Println()

	rows := []struct {
		label string
		value string
	}{
		{"Collection", stats.Collection},
		{"Chunks", fmt.Sprintf("%d", stats.RowCount)},
		{"Dimension", fmt.Sprintf("%d", stats.Dimension)},
		{"Model", stats.Model},
	}
	for _, row := range rows {
		fmt.Printf("%s %s\n",
			mutedStyle.Render(fmt.Sprintf("%-12s", row.label)),
			answerStyle.Render(row.value))
	}

	return nil
}
