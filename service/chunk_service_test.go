package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/librarian-be/types"
)

func TestChunkPageCoversAllCharacters(t *testing.T) {
	chunker := NewChunkService(types.ChunkServiceConfig{
		MaxChunkSize: 200,
		OverlapSize:  40,
		MinChunkSize: 50,
	})

	sentence := "The quick brown fox jumps over the lazy dog near the river bank. "
	text := strings.Repeat(sentence, 20)

	chunks := chunker.ChunkPage("doc-1", types.ChunkMetadata{Title: "Foxes"}, 3, text)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, len(text), chunks[len(chunks)-1].CharEnd)

	for i, chunk := range chunks {
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, 3, chunk.Page)
		assert.Equal(t, text[chunk.CharStart:chunk.CharEnd], chunk.Text)
		assert.Equal(t, ChunkID("doc-1", 3, chunk.CharStart, chunk.CharEnd), chunk.ID)
		if i > 0 {
			// No gap between consecutive chunks; overlap is allowed.
			assert.LessOrEqual(t, chunk.CharStart, chunks[i-1].CharEnd)
			assert.Greater(t, chunk.CharEnd, chunks[i-1].CharEnd)
		}
	}
}

func TestChunkPageShortTextSingleChunk(t *testing.T) {
	chunker := NewChunkService(types.ChunkServiceConfig{
		MaxChunkSize: 1000,
		OverlapSize:  100,
		MinChunkSize: 100,
	})

	text := "A page shorter than the minimum chunk size."
	chunks := chunker.ChunkPage("doc-1", types.ChunkMetadata{}, 1, text)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, len(text), chunks[0].CharEnd)
	assert.Equal(t, text, chunks[0].Text)
}

func TestChunkPageEmptyText(t *testing.T) {
	chunker := NewChunkService(DefaultChunkServiceConfig)

	assert.Nil(t, chunker.ChunkPage("doc-1", types.ChunkMetadata{}, 1, ""))
	assert.Nil(t, chunker.ChunkPage("doc-1", types.ChunkMetadata{}, 1, "   \n\t "))
}

func TestChunkPageMergesTrailingFragment(t *testing.T) {
	chunker := NewChunkService(types.ChunkServiceConfig{
		MaxChunkSize: 100,
		OverlapSize:  0,
		MinChunkSize: 20,
		Lookback:     1,
	})

	// 110 chars with no cut points: hard cut at 100, remainder 10 < 20.
	text := strings.Repeat("a", 110)
	chunks := chunker.ChunkPage("doc-1", types.ChunkMetadata{}, 1, text)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, 110, chunks[0].CharEnd)
	assert.Equal(t, ChunkID("doc-1", 1, 0, 110), chunks[0].ID)
}

func TestChunkPageKeepsRuneBoundaries(t *testing.T) {
	chunker := NewChunkService(types.ChunkServiceConfig{
		MaxChunkSize: 101,
		OverlapSize:  10,
		MinChunkSize: 20,
	})

	// Two-byte runes with no sentence or word boundaries force hard cuts
	// at positions that would otherwise land mid-rune.
	text := strings.Repeat("é", 300)
	chunks := chunker.ChunkPage("doc-1", types.ChunkMetadata{}, 1, text)

	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, len(text), chunks[len(chunks)-1].CharEnd)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text), "chunk %d is not valid UTF-8: %q", i, chunk.Text)
		if i > 0 {
			assert.LessOrEqual(t, chunk.CharStart, chunks[i-1].CharEnd)
			assert.Greater(t, chunk.CharEnd, chunks[i-1].CharEnd)
		}
	}
}

func TestChunkIDDeterministic(t *testing.T) {
	assert.Equal(t, ChunkID("doc-1", 2, 0, 100), ChunkID("doc-1", 2, 0, 100))
	assert.NotEqual(t, ChunkID("doc-1", 2, 0, 100), ChunkID("doc-1", 3, 0, 100))
	assert.NotEqual(t, ChunkID("doc-1", 2, 0, 100), ChunkID("doc-2", 2, 0, 100))
	assert.NotEqual(t, ChunkID("doc-1", 2, 0, 100), ChunkID("doc-1", 2, 0, 101))
}
