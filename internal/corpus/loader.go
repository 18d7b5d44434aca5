package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Common errors for corpus loading
var (
	ErrEmptyCorpus = errors.New("corpus contains no documents")
	ErrMissingURL  = errors.New("document is missing a source URL")
)

// scrapedPage mirrors one entry of the scraper's cleaned JSON output.
type scrapedPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Load reads a scraped corpus file (a JSON array of pages) into Documents.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	return Parse(data)
}

// Parse decodes corpus JSON into Documents. Pages without a URL fail the
// whole load; pages without content are silently dropped since the scraper
// occasionally emits empty redirect pages.
func Parse(data []byte) ([]Document, error) {
	var pages []scrapedPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("failed to parse corpus JSON: %w", err)
	}

	if len(pages) == 0 {
		return nil, ErrEmptyCorpus
	}

	docs := make([]Document, 0, len(pages))
	for i, page := range pages {
		if page.URL == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingURL, i)
		}
		if page.Content == "" {
			continue
		}

		docs = append(docs, Document{
			ID:    DocumentID(page.URL),
			URL:   page.URL,
			Title: page.Title,
			Text:  page.Content,
		})
	}

	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	return docs, nil
}
