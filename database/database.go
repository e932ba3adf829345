package database

import (
	"context"

	"github.com/tieubaoca/librarian-be/types"
)

// ScoredChunk is a chunk returned by a similarity search together with its
// cosine similarity score.
type ScoredChunk struct {
	Chunk types.Chunk
	Score float32
}

// VectorDatabase defines the vector index contract. Readers see either the
// pre- or post-insert state during concurrent ingestion, never a partially
// written chunk. An empty result set is a valid outcome, not an error.
type VectorDatabase interface {
	UpsertChunk(ctx context.Context, chunk *types.Chunk, embedding []float32) error
	BatchInsertChunks(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error
	DeleteDocument(ctx context.Context, documentID string) error

	// ReInit wipes the whole index, used by corpus maintenance.
	ReInit() error

	// SearchSimilar returns up to limit chunks ordered by cosine similarity,
	// restricted by the filter before ranking.
	SearchSimilar(ctx context.Context, vector []float32, filter types.SearchFilter, limit int) ([]ScoredChunk, error)
}

// DocumentStore persists document-level metadata across sessions.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	ListDocuments(ctx context.Context, page, limit int64) ([]types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}
