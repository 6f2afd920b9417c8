package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKnowledgeItem_DedupKey(t *testing.T) {
	tests := []struct {
		name string
		item KnowledgeItem
		want string
	}{
		{
			name: "URL wins",
			item: KnowledgeItem{URL: "https://example.org/a", ID: "pmc:123", Title: "A"},
			want: "https://example.org/a",
		},
		{
			name: "ID when no URL",
			item: KnowledgeItem{ID: "pmc:123", Title: "A"},
			want: "pmc:123",
		},
		{
			name: "normalized title as last resort",
			item: KnowledgeItem{Title: "  Diabetes Overview  "},
			want: "diabetes overview",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.DedupKey())
		})
	}
}

func TestKnowledgeItem_ParsedDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		ok   bool
		year int
	}{
		{"RFC3339", "2024-03-15T10:00:00Z", true, 2024},
		{"plain ISO date", "2024-03-15", true, 2024},
		{"slash date", "2024/03/15", true, 2024},
		{"year-month", "2024-03", true, 2024},
		{"year only", "2024", true, 2024},
		{"empty", "", false, 0},
		{"garbage", "March 15th", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := KnowledgeItem{Date: tt.date}
			parsed, ok := item.ParsedDate()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.year, parsed.Year())
			} else {
				assert.Equal(t, time.Time{}, parsed)
			}
		})
	}
}

func TestKnowledgeItem_EmbeddingText(t *testing.T) {
	full := KnowledgeItem{Title: "Title", Summary: "Summary"}
	assert.Equal(t, "Title\n\nSummary", full.EmbeddingText())

	titleOnly := KnowledgeItem{Title: "Title"}
	assert.Equal(t, "Title", titleOnly.EmbeddingText())

	empty := KnowledgeItem{}
	assert.Empty(t, empty.EmbeddingText())
}
