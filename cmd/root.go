package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lorekeeper",
	Short: "Question answering over a scraped lore archive",
	Long: `Lorekeeper answers natural language questions about a scraped lore
archive. Documents are chunked, embedded, and stored in a vector index;
at query time the most relevant passages are retrieved and handed to an
LLM together with the question and recent conversation history.

Typical workflow:
  1. lorekeeper index --corpus cleaned_data.json
  2. lorekeeper ask "Who is Queen Marika?"
  3. lorekeeper chat

Configuration is read from a YAML file (--config, default config.yaml);
a missing file falls back to built-in defaults. API keys are read from
the environment, never from the file.`,
}

// Shared palette; individual commands compose styles from these.
var (
	headerColor  = lipgloss.Color("#F780FF") // Bright pink
	accentColor  = lipgloss.Color("#8BE9FD") // Cyan
	textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
	mutedColor   = lipgloss.Color("#6272A4") // Muted purple
	errorColor   = lipgloss.Color("#FF5555") // Red
	successColor = lipgloss.Color("#50FA7B") // Green
	numberColor  = lipgloss.Color("#FF79C6") // Pink
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(accentColor).Italic(true)
	answerStyle   = lipgloss.NewStyle().Foreground(textColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(successColor)
	numberStyle   = lipgloss.NewStyle().Foreground(numberColor)
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
