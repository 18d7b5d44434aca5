package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarnished-labs/lorekeeper/internal/config"
	"github.com/tarnished-labs/lorekeeper/internal/orchestrator"
)

var (
	askTopK     int
	showSources bool
	verbose     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question about the indexed archive",
	Long: `Ask a natural language question about the indexed archive.

This command:
1. Embeds the question and retrieves the most similar passages
2. Assembles a prompt from the passages
3. Generates a grounded answer with inline [Source N] citations

The query is stateless; nothing carries over between invocations. Use
"lorekeeper chat" for follow-up questions.

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings
  GEMINI_API_KEY     - Gemini API key for answer generation
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  lorekeeper ask "Who is Queen Marika?"
  lorekeeper ask "What is the Rune of Death?" --top-k 8 --show-sources
  lorekeeper ask "How did the Shattering begin?" --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Number of passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&showSources, "show-sources", false, "Show the cited passages below the answer")
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed progress")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	if askTopK > 0 {
		cfg.Query.TopK = askTopK
	}

	// Print question
	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(questionStyle.Render(question))
	fmt.Println()

	if verbose {
		fmt.Println(mutedStyle.Render("→ Initializing query engine..."))
	}

	engine, err := orchestrator.New(ctx, cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("%s Failed to create query engine: %w", errorStyle.Render("Error:"), err)
	}
	defer engine.Close()

	if verbose {
		fmt.Println(successStyle.Render("✓ Query engine initialized"))
		fmt.Println(mutedStyle.Render(fmt.Sprintf("→ Retrieving top %d passages and generating answer...", cfg.Query.TopK)))
	}

	result, err := engine.Answer(ctx, question, nil)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if verbose {
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Answer generated from %d passages", len(result.Citations))))
		fmt.Println()
	}

	// Print answer
	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	fmt.Println(answerStyle.Render(strings.TrimSpace(result.Answer.Text)))
	fmt.Println()

	if showSources {
		printSources(result.Citations)
		fmt.Println()
	}

	return nil
}
