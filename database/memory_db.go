package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tieubaoca/librarian-be/types"
)

// MemoryStore is a brute-force cosine similarity index kept in memory. It
// backs local setups and tests; the RWMutex lets queries proceed while new
// documents are being inserted.
type MemoryStore struct {
	mu      sync.RWMutex
	chunks  []types.Chunk
	vectors [][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) UpsertChunk(ctx context.Context, chunk *types.Chunk, embedding []float32) error {
	if embedding == nil {
		return fmt.Errorf("missing embedding for chunk %s", chunk.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chunks {
		if s.chunks[i].ID == chunk.ID {
			s.chunks[i] = *chunk
			s.vectors[i] = normalize(embedding)
			return nil
		}
	}
	s.chunks = append(s.chunks, *chunk)
	s.vectors = append(s.vectors, normalize(embedding))
	return nil
}

func (s *MemoryStore) BatchInsertChunks(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		if embeddings[i] == nil {
			return fmt.Errorf("missing embedding for chunk %s", chunks[i].ID)
		}
		s.chunks = append(s.chunks, chunks[i])
		s.vectors = append(s.vectors, normalize(embeddings[i]))
	}
	return nil
}

// ReInit drops every stored chunk and vector.
func (s *MemoryStore) ReInit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.vectors = nil
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	keptVecs := s.vectors[:0]
	for i := range s.chunks {
		if s.chunks[i].DocumentID != documentID {
			kept = append(kept, s.chunks[i])
			keptVecs = append(keptVecs, s.vectors[i])
		}
	}
	s.chunks = kept
	s.vectors = keptVecs
	return nil
}

func (s *MemoryStore) SearchSimilar(ctx context.Context, vector []float32, filter types.SearchFilter, limit int) ([]ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}
	query := normalize(vector)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []ScoredChunk
	for i := range s.chunks {
		if !matchesFilter(&s.chunks[i], filter) {
			continue
		}
		results = append(results, ScoredChunk{
			Chunk: s.chunks[i],
			Score: dot(s.vectors[i], query),
		})
	}

	// Ties break by earliest ingestion, then chunk id, so results are
	// reproducible run to run.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.CreatedAt != results[j].Chunk.CreatedAt {
			return results[i].Chunk.CreatedAt < results[j].Chunk.CreatedAt
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matchesFilter(chunk *types.Chunk, filter types.SearchFilter) bool {
	if filter.Empty() {
		return true
	}
	if len(filter.DocumentIDs) > 0 {
		found := false
		for _, id := range filter.DocumentIDs {
			if chunk.DocumentID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Tags) > 0 {
		found := false
		for _, want := range filter.Tags {
			for _, tag := range chunk.Metadata.Tags {
				if tag == want {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
