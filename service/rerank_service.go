package service

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/tieubaoca/librarian-be/types"
)

// Reranker re-scores retrieval candidates with a finer-grained query–chunk
// relevance model than raw vector similarity. Implementations must be
// stable: identical input always yields identical ordering.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.RetrievalCandidate) ([]types.RetrievalCandidate, error)
}

// RerankService applies a Reranker and truncates to top-k, fusing rerank and
// similarity scores with a configurable weight. A failing reranker degrades
// to the raw similarity order instead of failing the query.
type RerankService struct {
	reranker Reranker
	weight   float64
}

func NewRerankService(reranker Reranker, weight float64) *RerankService {
	if weight < 0 || weight > 1 {
		weight = 0.7
	}
	return &RerankService{
		reranker: reranker,
		weight:   weight,
	}
}

func (s *RerankService) Rerank(ctx context.Context, query string, candidates []types.RetrievalCandidate, k int) []types.RetrievalCandidate {
	if k <= 0 {
		k = 5
	}
	out := candidates
	if s.reranker != nil {
		reranked, err := s.reranker.Rerank(ctx, query, candidates)
		if err != nil {
			log.Printf("Warning: reranker unavailable, falling back to similarity order: %v", err)
		} else {
			out = reranked
		}
	}

	sorted := make([]types.RetrievalCandidate, len(out))
	copy(sorted, out)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].FinalScore(s.weight), sorted[j].FinalScore(s.weight)
		if a != b {
			return a > b
		}
		return sorted[i].ChunkID < sorted[j].ChunkID
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

var wordRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// stopwords excluded from lexical scoring; function words carry no evidence
// of topical relevance.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "were": true, "which": true, "with": true, "not": true,
	"their": true, "they": true, "than": true, "then": true, "these": true,
	"those": true, "can": true, "will": true, "would": true, "there": true,
}

// contentWords lower-cases, tokenises and drops stopwords.
func contentWords(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if stopwords[w] || len(w) < 2 {
			continue
		}
		words = append(words, w)
	}
	return words
}

// LexicalReranker scores each query–chunk pair by content-word overlap. It
// corrects embedding-space false positives that are topically near without
// actually answering the query, and is fully deterministic.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Rerank(ctx context.Context, query string, candidates []types.RetrievalCandidate) ([]types.RetrievalCandidate, error) {
	queryWords := contentWords(query)
	querySet := make(map[string]bool, len(queryWords))
	for _, w := range queryWords {
		querySet[w] = true
	}

	out := make([]types.RetrievalCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		score := pairScore(querySet, out[i].Chunk.Text)
		out[i].RerankScore = &score
	}
	return out, nil
}

// pairScore is the fraction of distinct query content words present in the
// chunk text.
func pairScore(querySet map[string]bool, chunkText string) float32 {
	if len(querySet) == 0 {
		return 0
	}
	seen := make(map[string]bool)
	for _, w := range contentWords(chunkText) {
		if querySet[w] {
			seen[w] = true
		}
	}
	return float32(len(seen)) / float32(len(querySet))
}
