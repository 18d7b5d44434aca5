package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarnished-labs/lorekeeper/internal/config"
	"github.com/tarnished-labs/lorekeeper/internal/conversation"
	"github.com/tarnished-labs/lorekeeper/internal/orchestrator"
)

// sourcePreviewChars bounds the passage text shown per citation.
const sourcePreviewChars = 500

var transcriptFile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question answering with conversation memory",
	Long: `Start an interactive session against the indexed archive.

Recent conversation turns are folded into each prompt, so follow-up
questions can lean on earlier answers ("What about her brother?").

Session commands:
  /sources  - show the citations behind the last answer
  /reset    - discard the conversation and start fresh
  /quit     - exit the session

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings
  GEMINI_API_KEY     - Gemini API key for answer generation
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  lorekeeper chat
  lorekeeper chat --transcript session.json`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&transcriptFile, "transcript", "", "Persist the conversation to this JSON file across sessions")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	engine, err := orchestrator.New(ctx, cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("%s Failed to create query engine: %w", errorStyle.Render("Error:"), err)
	}
	defer engine.Close()

	conv := conversation.New()
	if transcriptFile != "" {
		loaded, err := conversation.LoadTranscript(transcriptFile)
		switch {
		case err == nil:
			conv = loaded
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Restored %d turns from %s", conv.Len(), transcriptFile)))
		case errors.Is(err, os.ErrNotExist):
			// First session; the file appears after the first exchange
		default:
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Lorekeeper"))
	fmt.Println(mutedStyle.Render("Ask about the archive. /sources, /reset, /quit"))
	fmt.Println()

	var lastCitations []orchestrator.Citation
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(questionStyle.Render("You: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			fmt.Println(mutedStyle.Render("Goodbye."))
			return nil
		case "/reset":
			conv.Reset()
			lastCitations = nil
			if transcriptFile != "" {
				if err := conversation.SaveTranscript(transcriptFile, conv); err != nil {
					fmt.Println(errorStyle.Render(fmt.Sprintf("Warning: failed to save transcript: %v", err)))
				}
			}
			fmt.Println(successStyle.Render("✓ Conversation cleared"))
			continue
		case "/sources":
			printSources(lastCitations)
			continue
		}

		result, err := engine.Answer(ctx, line, conv)
		if err != nil {
			fmt.Println(errorStyle.Render("Error:"), err)
			continue
		}
		lastCitations = result.Citations

		fmt.Println()
		fmt.Println(answerStyle.Render(strings.TrimSpace(result.Answer.Text)))
		fmt.Println(mutedStyle.Render(fmt.Sprintf("(%d sources, /sources for details)", len(result.Citations))))
		fmt.Println()

		if transcriptFile != "" {
			if err := conversation.SaveTranscript(transcriptFile, conv); err != nil {
				fmt.Println(errorStyle.Render(fmt.Sprintf("Warning: failed to save transcript: %v", err)))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s failed to read input: %w", errorStyle.Render("Error:"), err)
	}
	return nil
}

// printSources renders each citation with its score and a text preview.
func printSources(citations []orchestrator.Citation) {
	if len(citations) == 0 {
		fmt.Println(mutedStyle.Render("No sources to show yet."))
		return
	}

	fmt.Println(headerStyle.Render("Sources:"))
	for _, c := range citations {
		fmt.Printf("%s %s %s\n",
			numberStyle.Render(fmt.Sprintf("[%s]", c.Label)),
			answerStyle.Render(c.Title),
			mutedStyle.Render(fmt.Sprintf("(score %.2f)", c.Score)))
		if c.URL != "" {
			fmt.Println(mutedStyle.Render("    " + c.URL))
		}

		preview := c.Text
		if len(preview) > sourcePreviewChars {
			preview = preview[:sourcePreviewChars] + "..."
		}
		fmt.Println(answerStyle.Render("    " + preview))
	}
}
