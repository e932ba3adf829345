package service

import (
	"regexp"
	"strings"

	"github.com/tieubaoca/librarian-be/types"
)

// VerifyService checks, after generation, that each cited sentence is
// actually supported by its source chunk. Sentences that fail are flagged
// and surfaced, never silently dropped: a confidently-worded answer is not
// presented as verified unless checked.
type VerifyService struct {
	threshold float64
}

func NewVerifyService(threshold float64) *VerifyService {
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.3
	}
	return &VerifyService{threshold: threshold}
}

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// sentenceSpan is one sentence of the final answer with its byte offsets.
type sentenceSpan struct {
	start int
	end   int
	text  string
}

// splitSentences walks the answer once and cuts at sentence punctuation,
// keeping trailing citation markers attached to the sentence they follow.
func splitSentences(text string) []sentenceSpan {
	var spans []sentenceSpan
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '.' || c == '?' || c == '!' {
			end := i + 1
			// Markers like [3] right after the period belong to this sentence.
			for end < len(text) {
				j := end
				for j < len(text) && text[j] == ' ' {
					j++
				}
				loc := markerRe.FindStringIndex(text[j:])
				if loc == nil || loc[0] != 0 {
					break
				}
				end = j + loc[1]
			}
			sentence := strings.TrimSpace(text[start:end])
			if sentence != "" {
				spans = append(spans, sentenceSpan{start: start, end: end, text: sentence})
			}
			start = end
			i = end
			continue
		}
		i++
	}
	if trailing := strings.TrimSpace(text[start:]); trailing != "" {
		spans = append(spans, sentenceSpan{start: start, end: len(text), text: trailing})
	}
	return spans
}

// extractMarkers returns the distinct marker numbers cited in a string, in
// order of first appearance.
func extractMarkers(text string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, match := range markerRe.FindAllStringSubmatch(text, -1) {
		n := 0
		for _, d := range match[1] {
			n = n*10 + int(d-'0')
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Verify checks every cited sentence of the assembled answer against the
// chunk its marker points to and records per-marker statuses. An entailment
// check that cannot confidently classify is treated conservatively as
// unsupported, never upgraded to supported.
func (s *VerifyService) Verify(answer string, session *CitationSession) types.VerificationSummary {
	summary := types.VerificationSummary{}

	markerChecked := make(map[int]bool)
	markerFailed := make(map[int]bool)

	for _, span := range splitSentences(answer) {
		markers := extractMarkers(span.text)
		if len(markers) == 0 {
			continue
		}
		claim := strings.TrimSpace(markerRe.ReplaceAllString(span.text, ""))
		unsupported := []int{}
		for _, seq := range markers {
			marker, ok := session.Marker(seq)
			if !ok {
				// The model invented a marker number; nothing backs it.
				unsupported = append(unsupported, seq)
				continue
			}
			chunk, ok := session.Chunk(marker.ChunkID)
			if !ok {
				unsupported = append(unsupported, seq)
				continue
			}
			markerChecked[seq] = true
			if !s.entails(chunk.Text, claim) {
				markerFailed[seq] = true
				unsupported = append(unsupported, seq)
			}
		}
		if len(unsupported) > 0 {
			summary.Flagged = append(summary.Flagged, types.FlaggedSentence{
				Start:   span.start,
				End:     span.end,
				Text:    span.text,
				Markers: unsupported,
			})
		}
	}

	for _, marker := range session.Markers() {
		if !markerChecked[marker.Seq] {
			marker.Status = types.VerificationNotChecked
			summary.NotCheckedCount++
			continue
		}
		if markerFailed[marker.Seq] {
			marker.Status = types.VerificationUnsupported
			summary.UnsupportedCount++
		} else {
			marker.Status = types.VerificationSupported
			summary.SupportedCount++
		}
	}
	return summary
}

// entails is a lexical-semantic overlap heuristic: the fraction of the
// claim's content words present in the evidence must clear the threshold.
// Claims too short to judge are inconclusive and therefore not entailed.
func (s *VerifyService) entails(evidence, claim string) bool {
	claimWords := contentWords(claim)
	if len(claimWords) < 3 {
		return false
	}
	evidenceSet := make(map[string]bool)
	for _, w := range contentWords(evidence) {
		evidenceSet[w] = true
	}
	matched := 0
	for _, w := range claimWords {
		if evidenceSet[w] {
			matched++
		}
	}
	return float64(matched)/float64(len(claimWords)) >= s.threshold
}
