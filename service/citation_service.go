package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tieubaoca/librarian-be/types"
)

// Supported citation export formats.
const (
	FormatNumeric = "numeric"
	FormatAPA     = "apa"
	FormatMLA     = "mla"
)

// CitationSession is the per-session marker table. Marker numbers are
// strictly increasing, assigned on first use, and a chunk id never receives
// two distinct markers within one session. The table lives exactly as long
// as the answer session that owns it.
type CitationSession struct {
	mu      sync.Mutex
	byChunk map[string]*types.CitationMarker
	ordered []*types.CitationMarker
	chunks  map[string]types.Chunk
	next    int
}

func NewCitationSession() *CitationSession {
	return &CitationSession{
		byChunk: make(map[string]*types.CitationMarker),
		chunks:  make(map[string]types.Chunk),
		next:    1,
	}
}

// AssignMarker returns the existing marker for a chunk already cited this
// session, or allocates the next sequence number. Citation identity is
// per-chunk, not per-mention.
func (s *CitationSession) AssignMarker(chunk types.Chunk, score float32) *types.CitationMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if marker, ok := s.byChunk[chunk.ID]; ok {
		return marker
	}
	marker := &types.CitationMarker{
		Seq:        s.next,
		ChunkID:    chunk.ID,
		DocumentID: chunk.DocumentID,
		Page:       chunk.Page,
		Score:      score,
		Status:     types.VerificationUnverified,
	}
	s.next++
	s.byChunk[chunk.ID] = marker
	s.ordered = append(s.ordered, marker)
	s.chunks[chunk.ID] = chunk
	return marker
}

// Marker looks up a marker by its sequence number.
func (s *CitationSession) Marker(seq int) (*types.CitationMarker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.ordered {
		if m.Seq == seq {
			return m, true
		}
	}
	return nil, false
}

// Chunk returns the evidence text backing a marker.
func (s *CitationSession) Chunk(chunkID string) (types.Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunk, ok := s.chunks[chunkID]
	return chunk, ok
}

// Markers returns all markers in allocation order.
func (s *CitationSession) Markers() []*types.CitationMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.CitationMarker, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Release drops the marker table. Sessions call this when they end so that
// markers never outlive the interaction that produced them.
func (s *CitationSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChunk = make(map[string]*types.CitationMarker)
	s.chunks = make(map[string]types.Chunk)
	s.ordered = nil
	s.next = 1
}

// FormatCitation renders one marker in the requested style. Every format
// embeds the page and a {doc:<id>} locator so references parse back to the
// exact (document_id, page) pair.
func FormatCitation(format string, marker *types.CitationMarker, meta types.ChunkMetadata) (string, error) {
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	author := meta.Author
	if author == "" {
		author = "Unknown"
	}
	switch format {
	case FormatNumeric:
		return fmt.Sprintf("[%d] %s, p. %d. {doc:%s}", marker.Seq, title, marker.Page, marker.DocumentID), nil
	case FormatAPA:
		return fmt.Sprintf("%s. %s (p. %d). {doc:%s}", author, title, marker.Page, marker.DocumentID), nil
	case FormatMLA:
		return fmt.Sprintf("%s. \"%s.\" p. %d. {doc:%s}", author, title, marker.Page, marker.DocumentID), nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, format)
	}
}

// Render exports the session's citations in the requested style, restricted
// to the given marker numbers (nil means all). Unknown formats are rejected
// before any output is produced.
func (s *CitationSession) Render(format string, seqs []int) (string, error) {
	markers := s.Markers()
	if seqs != nil {
		wanted := make(map[int]bool, len(seqs))
		for _, n := range seqs {
			wanted[n] = true
		}
		filtered := markers[:0]
		for _, m := range markers {
			if wanted[m.Seq] {
				filtered = append(filtered, m)
			}
		}
		markers = filtered
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].Seq < markers[j].Seq })

	var sb strings.Builder
	for _, marker := range markers {
		chunk, _ := s.Chunk(marker.ChunkID)
		line, err := FormatCitation(format, marker, chunk.Metadata)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

var (
	docLocatorRe = regexp.MustCompile(`\{doc:([^}]+)\}`)
	pageRe       = regexp.MustCompile(`p\. (\d+)`)
)

// ParseReference recovers the (document_id, page) pair from a rendered
// citation line of any supported format.
func ParseReference(line string) (documentID string, page int, err error) {
	docMatch := docLocatorRe.FindStringSubmatch(line)
	if docMatch == nil {
		return "", 0, fmt.Errorf("no document locator in reference: %q", line)
	}
	pageMatch := pageRe.FindStringSubmatch(line)
	if pageMatch == nil {
		return "", 0, fmt.Errorf("no page in reference: %q", line)
	}
	page, err = strconv.Atoi(pageMatch[1])
	if err != nil {
		return "", 0, err
	}
	return docMatch[1], page, nil
}
