package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/types"
)

// RetrievalService fetches an over-sized candidate pool from the vector
// index so the reranker has something meaningful to work with.
type RetrievalService struct {
	embedder Embedder
	vectorDB database.VectorDatabase
	fanOut   int
}

func NewRetrievalService(embedder Embedder, vectorDB database.VectorDatabase, fanOut int) *RetrievalService {
	if fanOut < 3 {
		fanOut = 3
	}
	return &RetrievalService{
		embedder: embedder,
		vectorDB: vectorDB,
		fanOut:   fanOut,
	}
}

// Retrieve embeds the query and returns up to k*fanOut candidates ordered by
// cosine similarity, ties broken by earliest document ingestion. Zero
// matches returns an empty slice and nil error: no evidence found is a
// valid outcome, not a system fault.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int, filter types.SearchFilter) ([]types.RetrievalCandidate, error) {
	if k <= 0 {
		k = 5
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := s.vectorDB.SearchSimilar(ctx, vector, filter, k*s.fanOut)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	// Re-sort locally: backends are not required to guarantee our tie order.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.CreatedAt != scored[j].Chunk.CreatedAt {
			return scored[i].Chunk.CreatedAt < scored[j].Chunk.CreatedAt
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	candidates := make([]types.RetrievalCandidate, 0, len(scored))
	for _, sc := range scored {
		candidates = append(candidates, types.RetrievalCandidate{
			ChunkID:         sc.Chunk.ID,
			Chunk:           sc.Chunk,
			SimilarityScore: sc.Score,
		})
	}
	return candidates, nil
}
