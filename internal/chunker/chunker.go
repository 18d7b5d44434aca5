// Package chunker splits documents into overlapping chunks sized for
// embedding. Splitting is a pure function of the input text and the
// configuration, so re-chunking an unchanged document always reproduces the
// same chunk sequence.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tarnished-labs/lorekeeper/internal/corpus"
)

// Common errors for chunker configuration
var (
	ErrInvalidChunkSize = errors.New("max chunk size must be positive")
	ErrInvalidOverlap   = errors.New("overlap must be non-negative and smaller than max chunk size")
)

// Defaults tuned for wiki articles and embedding model context windows.
const (
	DefaultMaxChunkSize = 1000
	DefaultOverlap      = 200
)

// separators in priority order, coarsest first. Paragraph breaks beat line
// breaks beat sentence ends beat word boundaries; anything still too long
// after that is hard-cut.
var separators = []string{"\n\n", "\n", ". ", " "}

// Config controls chunk sizing. Sizes and offsets are byte counts.
type Config struct {
	// MaxChunkSize is the upper bound on a chunk's length
	MaxChunkSize int

	// Overlap is how many trailing bytes of a chunk reappear at the start
	// of the next one
	Overlap int
}

// DefaultConfig returns the standard chunking configuration.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize: DefaultMaxChunkSize,
		Overlap:      DefaultOverlap,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.MaxChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: got overlap %d for max chunk size %d", ErrInvalidOverlap, c.Overlap, c.MaxChunkSize)
	}
	return nil
}

// Chunk is a contiguous slice of a document prepared for embedding.
type Chunk struct {
	// DocumentID identifies the source document
	DocumentID string `json:"document_id"`

	// Text is the chunk content, including the leading overlap for every
	// chunk after the first
	Text string `json:"text"`

	// SequenceIndex is the chunk's 0-based position within the document
	SequenceIndex int `json:"sequence_index"`

	// StartOffset is the byte offset of Text within the document
	StartOffset int `json:"start_offset"`
}

// Split cuts a document into overlapping chunks.
//
// The text is first segmented at the coarsest separator that appears,
// re-splitting oversized pieces with progressively finer separators.
// Separators stay attached to the text before them, so every chunk is a
// contiguous slice of the document: stripping the first Overlap bytes of
// every chunk after the first and concatenating reconstructs the document
// exactly. Segments are then merged greedily up to MaxChunkSize, and each
// chunk after the first begins with the trailing Overlap bytes of its
// predecessor. A document no longer than MaxChunkSize is returned as a
// single chunk.
func Split(doc corpus.Document, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	text := doc.Text
	if text == "" {
		return nil, nil
	}
	if len(text) <= cfg.MaxChunkSize {
		return []Chunk{{DocumentID: doc.ID, Text: text, SequenceIndex: 0, StartOffset: 0}}, nil
	}

	// Segments are bounded by MaxChunkSize-Overlap so that after a chunk
	// boundary, the overlap plus the next segment always fits.
	segLimit := cfg.MaxChunkSize - cfg.Overlap
	segments := splitSegments(text, separators, segLimit)

	var chunks []Chunk
	start := 0
	length := 0
	for _, seg := range segments {
		if length > 0 && length+len(seg) > cfg.MaxChunkSize {
			chunks = append(chunks, Chunk{
				DocumentID:    doc.ID,
				Text:          text[start : start+length],
				SequenceIndex: len(chunks),
				StartOffset:   start,
			})
			// The next chunk re-reads the tail of this one.
			start = start + length - cfg.Overlap
			length = cfg.Overlap
		}
		length += len(seg)
	}
	chunks = append(chunks, Chunk{
		DocumentID:    doc.ID,
		Text:          text[start : start+length],
		SequenceIndex: len(chunks),
		StartOffset:   start,
	})

	return chunks, nil
}

// splitSegments cuts text into pieces no longer than limit, preferring the
// coarsest separator that appears. Pieces keep their trailing separator so
// they concatenate back to the original text.
func splitSegments(text string, seps []string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	if len(seps) == 0 {
		// Unbroken run with no separators at all: hard cut.
		var out []string
		for len(text) > limit {
			out = append(out, text[:limit])
			text = text[limit:]
		}
		if len(text) > 0 {
			out = append(out, text)
		}
		return out
	}

	sep, finer := seps[0], seps[1:]
	if !strings.Contains(text, sep) {
		return splitSegments(text, finer, limit)
	}

	var out []string
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], sep)
		if i < 0 {
			out = append(out, splitSegments(text[start:], finer, limit)...)
			break
		}
		piece := text[start : start+i+len(sep)]
		out = append(out, splitSegments(piece, finer, limit)...)
		start += i + len(sep)
	}
	return out
}
