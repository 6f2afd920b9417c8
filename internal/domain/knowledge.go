package domain

import (
	"strings"
	"time"
)

// KnowledgeItem is a normalized reference to an external medical document.
// Items are produced fresh on every aggregation and are not persisted unless
// they are later ingested into the vector index for a topic.
type KnowledgeItem struct {
	// ID is a stable external identifier, conventionally "{source}:{externalId}".
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	URL     string   `json:"url"`
	Source  string   `json:"source"`
	Date    string   `json:"date,omitempty"` // ISO date string, may be empty
	Tags    []string `json:"tags,omitempty"`
	// Priority is the reliability weight of the source, not the item.
	// Higher values rank earlier in aggregate output.
	Priority int `json:"priority"`
}

// DedupKey returns the key used for first-occurrence-wins deduplication:
// URL when present, then ID, then title.
func (k KnowledgeItem) DedupKey() string {
	if k.URL != "" {
		return k.URL
	}
	if k.ID != "" {
		return k.ID
	}
	return strings.ToLower(strings.TrimSpace(k.Title))
}

// ParsedDate returns the item date and whether it could be parsed.
// Accepts full RFC 3339 timestamps and plain ISO dates.
func (k KnowledgeItem) ParsedDate() (time.Time, bool) {
	raw := strings.TrimSpace(k.Date)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EmbeddingText builds the text embedded for an ingested knowledge item.
func (k KnowledgeItem) EmbeddingText() string {
	var parts []string
	if k.Title != "" {
		parts = append(parts, k.Title)
	}
	if k.Summary != "" {
		parts = append(parts, k.Summary)
	}
	return strings.Join(parts, "\n\n")
}
