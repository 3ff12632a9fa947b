package domain

import (
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/metadata"
)

// SearchResultItem is a single hydrated search hit.
type SearchResultItem struct {
	ID       string            `json:"id"`
	URI      ResourceURI       `json:"uri"`
	Score    float64           `json:"score"`
	Titles   map[string]string `json:"titles,omitempty"`
	Modified time.Time         `json:"modified,omitempty"`

	// Template is set for pages.
	Template string `json:"template,omitempty"`
	// Filename and MimeType are set for file based resources.
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimetype,omitempty"`

	// Metadata is the stored field snapshot the item was built from.
	Metadata []metadata.ResourceMetadata `json:"-"`
}

// SearchResult is a page of search hits.
type SearchResult struct {
	Query      *SearchQuery       `json:"-"`
	Hits       uint64             `json:"hits"`
	Offset     int                `json:"offset"`
	Limit      int                `json:"limit"`
	SearchTime time.Duration      `json:"search_time"`
	Items      []SearchResultItem `json:"items"`
}

// DocumentCount returns the number of items in this page, which can be
// lower than Hits.
func (r *SearchResult) DocumentCount() int {
	return len(r.Items)
}
