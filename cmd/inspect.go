package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tarnished-labs/lorekeeper/internal/chunker"
	"github.com/tarnished-labs/lorekeeper/internal/config"
	"github.com/tarnished-labs/lorekeeper/internal/corpus"
	"github.com/tarnished-labs/lorekeeper/internal/rag"
)

var (
	inspectCorpusFile string
	inspectExportFile string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Preview how a corpus will be chunked, without embedding",
	Long: `Chunk a scraped corpus locally and display the result per document.

Nothing is embedded or written to the vector store, so this runs
offline. Use it to tune max_chunk_size and overlap before paying for an
indexing run.

Each row shows:
- Document title
- Number of chunks it splits into
- Document length in characters
- Average chunk length

Examples:
  lorekeeper inspect --corpus cleaned_data.json
  lorekeeper inspect --corpus cleaned_data.json --export chunks.json`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectCorpusFile, "corpus", "", "Path to the scraped corpus JSON file (required)")
	inspectCmd.Flags().StringVar(&inspectExportFile, "export", "", "Export chunks to JSON file: --export <filename>")
	_ = inspectCmd.MarkFlagRequired("corpus")
}

// documentChunks pairs a document with the chunks it split into.
type documentChunks struct {
	doc    corpus.Document
	chunks []chunker.Chunk
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	chunkerConfig := cfg.EngineConfig().Chunker

	docs, err := corpus.Load(inspectCorpusFile)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	if len(docs) == 0 {
		fmt.Println("No documents found in corpus")
		return nil
	}

	split := make([]documentChunks, 0, len(docs))
	for _, doc := range docs {
		chunks, err := chunker.Split(doc, chunkerConfig)
		if err != nil {
			return fmt.Errorf("%s failed to chunk %s: %w", errorStyle.Render("Error:"), doc.ID, err)
		}
		split = append(split, documentChunks{doc: doc, chunks: chunks})
	}

	// Handle export flag
	if inspectExportFile != "" {
		return handleChunkExport(split, inspectExportFile)
	}

	// Default: output table
	return outputChunkTable(split)
}

// exportedChunk is the on-disk form of one chunk in an --export file.
type exportedChunk struct {
	ChunkID       string `json:"chunk_id"`
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	SequenceIndex int    `json:"sequence_index"`
	StartOffset   int    `json:"start_offset"`
	Text          string `json:"text"`
}

func handleChunkExport(split []documentChunks, filename string) error {
	// Create output file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	var out []exportedChunk
	for _, dc := range split {
		for _, chunk := range dc.chunks {
			out = append(out, exportedChunk{
				ChunkID:       rag.ChunkID(chunk.DocumentID, chunk.SequenceIndex),
				DocumentID:    chunk.DocumentID,
				Title:         dc.doc.Title,
				SequenceIndex: chunk.SequenceIndex,
				StartOffset:   chunk.StartOffset,
				Text:          chunk.Text,
			})
		}
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Exported %d chunks to %s\n", len(out), filename)
	return nil
}

func outputChunkTable(split []documentChunks) error {
	// Column widths
	const (
		titleWidth = 36
		chunkWidth = 8
		charWidth  = 10
		avgWidth   = 10
	)

	// Header style
	tableHeaderStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	// Border separator
	borderStyle := lipgloss.NewStyle().Foreground(mutedColor)

	// Print header
	headers := []string{
		tableHeaderStyle.Width(titleWidth).Render("DOCUMENT"),
		tableHeaderStyle.Width(chunkWidth).Render("CHUNKS"),
		tableHeaderStyle.Width(charWidth).Render("CHARS"),
		tableHeaderStyle.Width(avgWidth).Render("AVG CHUNK"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	// Print separator line - create separator sections and join with ┼
	separatorParts := []string{
		strings.Repeat("─", titleWidth),
		strings.Repeat("─", chunkWidth),
		strings.Repeat("─", charWidth),
		strings.Repeat("─", avgWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	titleStyle := lipgloss.NewStyle().
		Foreground(textColor).
		Padding(0, 1).
		Width(titleWidth)

	countStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(chunkWidth).
		Align(lipgloss.Right)

	charStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(charWidth).
		Align(lipgloss.Right)

	avgStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(avgWidth).
		Align(lipgloss.Right)

	totalChunks := 0
	totalChars := 0
	for _, dc := range split {
		chars := len(dc.doc.Text)
		avg := 0
		if len(dc.chunks) > 0 {
			chunkChars := 0
			for _, chunk := range dc.chunks {
				chunkChars += len(chunk.Text)
			}
			avg = chunkChars / len(dc.chunks)
		}

		title := dc.doc.Title
		if title == "" {
			title = dc.doc.ID
		}
		if len(title) > titleWidth-2 {
			title = title[:titleWidth-5] + "..."
		}

		cells := []string{
			titleStyle.Render(title),
			countStyle.Render(fmt.Sprintf("%d", len(dc.chunks))),
			charStyle.Render(fmt.Sprintf("%d", chars)),
			avgStyle.Render(fmt.Sprintf("%d", avg)),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))

		totalChunks += len(dc.chunks)
		totalChars += chars
	}

	// Calculate and print summary
	fmt.Println()

	avgPerChunk := 0
	if totalChunks > 0 {
		avgPerChunk = totalChars / totalChunks
	}

	summaryStyle := lipgloss.NewStyle().
		Foreground(accentColor).
		Italic(true)

	summary := fmt.Sprintf("Total: %d documents, %d chunks, %d chars (~%d per chunk)",
		len(split), totalChunks, totalChars, avgPerChunk)
	fmt.Println(summaryStyle.Render(summary))

	return nil
}
