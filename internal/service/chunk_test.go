package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, chunkText("", DefaultChunkConfig()))
	assert.Nil(t, chunkText("   \n\t  ", DefaultChunkConfig()))
}

func TestChunkTextCollapsesWhitespace(t *testing.T) {
	chunks := chunkText("a  b\n\nc\td", DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "a b c d", chunks[0])
}

func TestChunkTextShortTextSingleChunk(t *testing.T) {
	text := strings.Repeat("x", 800)
	chunks := chunkText(text, DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkTextSplitsAtSpaces(t *testing.T) {
	word := strings.Repeat("w", 9) // "w"*9 + space = 10 chars per word
	text := strings.TrimSpace(strings.Repeat(word+" ", 200)) // 1999 chars

	chunks := chunkText(text, DefaultChunkConfig())
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 800)
		// Word-preferring split means no chunk starts or ends mid-word.
		for _, w := range strings.Fields(chunk) {
			assert.Equal(t, word, w)
		}
	}
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestChunkTextHardCutWithoutSpaces(t *testing.T) {
	text := strings.Repeat("x", 2000)
	chunks := chunkText(text, ChunkConfig{MaxChars: 800, MaxChunks: 64})
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 800)
	assert.Len(t, chunks[1], 800)
	assert.Len(t, chunks[2], 400)
}

func TestChunkTextRuneSafe(t *testing.T) {
	text := strings.Repeat("ä", 1000)
	chunks := chunkText(text, ChunkConfig{MaxChars: 800, MaxChunks: 64})
	require.Len(t, chunks, 2)
	assert.Len(t, []rune(chunks[0]), 800)
	assert.Len(t, []rune(chunks[1]), 200)
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk, "ä"))
	}
}

func TestChunkTextMaxChunksCap(t *testing.T) {
	text := strings.Repeat("x", 5000)
	chunks := chunkText(text, ChunkConfig{MaxChars: 100, MaxChunks: 3})
	assert.Len(t, chunks, 3)
}
