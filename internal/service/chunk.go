package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how record text is split before embedding.
type ChunkConfig struct {
	MaxChars  int
	MaxChunks int
}

// DefaultChunkConfig provides the defaults for record chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  800,
		MaxChunks: 64,
	}
}

// collapseWhitespace folds any whitespace run into a single space so chunk
// boundaries do not depend on the record's original formatting.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// chunkText normalizes whitespace and splits the text into fixed-size rune
// chunks. The split prefers the last space inside a window so words stay
// intact; a window without any space is cut hard.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := collapseWhitespace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/cfg.MaxChars+1)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			for i := end; i > start; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			if cut > start+1 {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}

	return chunks
}
