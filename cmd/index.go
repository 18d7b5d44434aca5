package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarnished-labs/lorekeeper/internal/config"
	"github.com/tarnished-labs/lorekeeper/internal/corpus"
	"github.com/tarnished-labs/lorekeeper/internal/orchestrator"
	"github.com/tarnished-labs/lorekeeper/internal/rag"
)

var (
	corpusFile   string
	forceReindex bool
	batchSize    int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed, and index a scraped corpus",
	Long: `Index a scraped corpus file into the vector store.

The corpus is a JSON array of {url, title, content} objects. Each
document is split into overlapping chunks, the chunks are embedded in
batches, and the vectors are upserted under stable chunk ids. Chunks
that are already present are skipped, so re-running against an
unchanged corpus costs nothing; use --force to re-embed everything.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  lorekeeper index --corpus cleaned_data.json
  lorekeeper index --corpus cleaned_data.json --force --batch-size 16`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&corpusFile, "corpus", "", "Path to the scraped corpus JSON file (required)")
	indexCmd.Flags().BoolVar(&forceReindex, "force", false, "Re-embed and overwrite chunks that are already indexed")
	indexCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Chunks per embedding request (default from config)")
	_ = indexCmd.MarkFlagRequired("corpus")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	engineConfig := cfg.EngineConfig()

	opts := rag.DefaultIndexOptions()
	opts.BatchSize = cfg.Embedder.BatchSize
	if batchSize > 0 {
		opts.BatchSize = batchSize
	}
	if forceReindex {
		opts.ForceReindex = true
		opts.SkipExisting = false
	}

	fmt.Println(mutedStyle.Render(fmt.Sprintf("→ Loading corpus from %s...", corpusFile)))
	docs, err := corpus.Load(corpusFile)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Loaded %d documents", len(docs))))

	// Indexing needs the embedder and the index, not the LLM
	embedder, err := orchestrator.NewEmbedder(ctx, engineConfig)
	if err != nil {
		return fmt.Errorf("%s failed to create embedder: %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(mutedStyle.Render("→ Connecting to vector index..."))
	index, err := orchestrator.NewVectorIndex(ctx, engineConfig)
	if err != nil {
		return fmt.Errorf("%s failed to create vector index: %w", errorStyle.Render("Error:"), err)
	}
	defer index.Close()

	fmt.Println(mutedStyle.Render(fmt.Sprintf("→ Indexing with %s (batch size %d)...", cfg.Embedder.Model, opts.BatchSize)))
	report, err := rag.IndexDocuments(ctx, docs, engineConfig.Chunker, embedder, index, opts)
	if err != nil {
		return fmt.Errorf("%s indexing failed: %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(successStyle.Render("✓ Indexing complete"))
	fmt.Println()
	printIndexReport(report)

	return nil
}

// printIndexReport renders the indexing summary as aligned label/value lines.
func printIndexReport(report *rag.IndexReport) {
	rows := []struct {
		label string
		value int
	}{
		{"Documents", report.Documents},
		{"Chunks", report.Chunks},
		{"Already indexed", report.Skipped},
		{"Embedded", report.Embedded},
		{"Batches", report.Batches},
	}

	for _, row := range rows {
		fmt.Printf("%s %s\n",
			mutedStyle.Render(fmt.Sprintf("%-16s", row.label)),
			numberStyle.Render(fmt.Sprintf("%d", row.value)))
	}
}
