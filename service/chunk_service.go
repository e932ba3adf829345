package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tieubaoca/librarian-be/types"
)

// ChunkService splits extracted page text into overlapping chunks with
// provenance. Chunks never cross a page boundary because the page is the
// addressable citation unit.
type ChunkService struct {
	maxChunkSize int // Maximum size of each text chunk
	overlapSize  int // Size of overlap carried into the next chunk
	minChunkSize int // Trailing fragments below this merge into the previous chunk
	lookback     int // Window searched backwards for a sentence boundary
}

var DefaultChunkServiceConfig = types.ChunkServiceConfig{
	MaxChunkSize: 1000,
	OverlapSize:  100,
	MinChunkSize: 100,
	Lookback:     200,
}

// NewChunkService creates a new chunk service with configurable sizes.
func NewChunkService(config types.ChunkServiceConfig) *ChunkService {
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = DefaultChunkServiceConfig.MaxChunkSize
	}
	if config.OverlapSize < 0 || config.OverlapSize >= config.MaxChunkSize {
		config.OverlapSize = config.MaxChunkSize / 10
	}
	if config.MinChunkSize <= 0 {
		config.MinChunkSize = DefaultChunkServiceConfig.MinChunkSize
	}
	if config.Lookback <= 0 {
		config.Lookback = DefaultChunkServiceConfig.Lookback
	}
	return &ChunkService{
		maxChunkSize: config.MaxChunkSize,
		overlapSize:  config.OverlapSize,
		minChunkSize: config.MinChunkSize,
		lookback:     config.Lookback,
	}
}

// ChunkID derives the deterministic chunk id from the owning document and
// the chunk's span, so re-ingesting identical content yields identical ids.
func ChunkID(documentID string, page, start, end int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d:%d-%d", documentID, page, start, end)))
	return hex.EncodeToString(sum[:])
}

// ChunkPage splits one page's text into overlapping chunks. The returned
// chunks cover every character of the text; a page shorter than the minimum
// chunk size still produces exactly one chunk. Empty or whitespace-only text
// produces zero chunks and is the caller's per-page error to report.
func (s *ChunkService) ChunkPage(documentID string, meta types.ChunkMetadata, page int, text string) []types.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	now := time.Now().Unix()
	textLen := len(text)

	if textLen <= s.maxChunkSize {
		return []types.Chunk{s.newChunk(documentID, meta, page, 0, textLen, text, now)}
	}

	var chunks []types.Chunk
	currentPos := 0
	for currentPos < textLen {
		chunkEnd := currentPos + s.maxChunkSize
		if chunkEnd >= textLen {
			chunkEnd = textLen
			// Merge a trailing fragment into the previous chunk instead of
			// emitting it standalone.
			if chunkEnd-currentPos < s.minChunkSize && len(chunks) > 0 {
				prev := &chunks[len(chunks)-1]
				prev.CharEnd = chunkEnd
				prev.Text = text[prev.CharStart:chunkEnd]
				prev.ID = ChunkID(documentID, page, prev.CharStart, chunkEnd)
				break
			}
			chunks = append(chunks, s.newChunk(documentID, meta, page, currentPos, chunkEnd, text, now))
			break
		}

		chunkEnd = s.findCut(text, currentPos, chunkEnd)
		chunks = append(chunks, s.newChunk(documentID, meta, page, currentPos, chunkEnd, text, now))

		next := runeStart(text, chunkEnd-s.overlapSize)
		if next <= currentPos {
			next = chunkEnd
		}
		currentPos = next
	}
	return chunks
}

// findCut moves the cut position back to the nearest sentence end within the
// lookback window, falling back to a word boundary, then a hard cut.
func (s *ChunkService) findCut(text string, start, end int) int {
	low := end - s.lookback
	if low < start+1 {
		low = start + 1
	}
	for i := end - 1; i >= low; i-- {
		if text[i] == '.' || text[i] == '?' || text[i] == '!' {
			return i + 1
		}
	}
	for i := end - 1; i >= low; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}
	// Hard cut: back off so a multi-byte character is never split.
	if cut := runeStart(text, end); cut > start {
		return cut
	}
	return end
}

// runeStart moves i back to the start of the rune it points into.
func runeStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func (s *ChunkService) newChunk(documentID string, meta types.ChunkMetadata, page, start, end int, text string, now int64) types.Chunk {
	return types.Chunk{
		ID:         ChunkID(documentID, page, start, end),
		DocumentID: documentID,
		Page:       page,
		CharStart:  start,
		CharEnd:    end,
		Text:       text[start:end],
		Metadata:   meta,
		CreatedAt:  now,
	}
}
