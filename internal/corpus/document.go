// Package corpus loads the scraped knowledge base that the indexing
// pipeline consumes. Documents arrive as the JSON output of the wiki
// scraper and carry their source URL as identity.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
)

// Document is a single page of the knowledge base.
type Document struct {
	// ID is a stable identifier derived from the source URL
	ID string `json:"id"`

	// URL is the page's source location and its identity
	URL string `json:"url"`

	// Title is the page title as scraped
	Title string `json:"title"`

	// Text is the cleaned page content
	Text string `json:"text"`
}

// DocumentID derives a stable 16-hex-digit identifier from a source URL.
// Loading the same corpus twice yields identical IDs, which keeps
// re-indexing idempotent downstream.
func DocumentID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}
