package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/types"
)

// IngestService runs the ingestion path: extract pages, chunk, embed in
// batches and insert into the vector index, recording per-page and per-chunk
// failures without aborting the document.
type IngestService struct {
	extractor Extractor
	chunker   *ChunkService
	embedder  Embedder
	vectorDB  database.VectorDatabase
	docStore  database.DocumentStore
	batchSize int
}

func NewIngestService(
	extractor Extractor,
	chunker *ChunkService,
	embedder Embedder,
	vectorDB database.VectorDatabase,
	docStore database.DocumentStore,
	batchSize int,
) *IngestService {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &IngestService{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		docStore:  docStore,
		batchSize: batchSize,
	}
}

// DocumentID derives the stable, content-based document id. Re-ingesting
// identical bytes yields the same id; changed content gets a new one.
func DocumentID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Ingest processes one stored document end to end. The optional progress
// channel receives page-level status updates; the caller owns draining it.
// The returned report lists pages and chunks that failed without making the
// whole ingestion fail.
func (s *IngestService) Ingest(ctx context.Context, filePath string, req types.UploadRequest, progress chan<- types.ProcessingDocumentStatus) (*types.IngestReport, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	info, err := s.extractor.Info(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document info: %w", err)
	}

	title := req.Title
	if title == "" {
		title = info.Title
	}
	if title == "" {
		title = GetFileNameWithoutExt(filePath)
	}

	doc := types.Document{
		ID:         DocumentID(raw),
		Title:      title,
		Author:     info.Author,
		Source:     req.Source,
		Tags:       req.Tags,
		TotalPages: info.TotalPages,
		CreatedAt:  time.Now().Unix(),
	}
	meta := types.ChunkMetadata{
		Title:      doc.Title,
		Author:     doc.Author,
		TotalPages: doc.TotalPages,
		Tags:       doc.Tags,
	}

	report := &types.IngestReport{Document: doc}

	var chunks []types.Chunk
	for page := 1; page <= info.TotalPages; page++ {
		text, err := s.extractor.PageText(ctx, filePath, page)
		if err != nil {
			extErr := &types.ExtractionError{Page: page, Err: err}
			log.Printf("Warning: %v", extErr)
			report.PageErrors = append(report.PageErrors, types.PageError{Page: page, Error: extErr.Error()})
			s.notify(ctx, progress, doc.TotalPages, page, fmt.Sprintf("page %d failed", page))
			continue
		}
		cleaned := CleanPageText(text)
		pageChunks := s.chunker.ChunkPage(doc.ID, meta, page, cleaned)
		if len(pageChunks) == 0 {
			extErr := &types.ExtractionError{Page: page, Err: fmt.Errorf("empty page text")}
			report.PageErrors = append(report.PageErrors, types.PageError{Page: page, Error: extErr.Error()})
			s.notify(ctx, progress, doc.TotalPages, page, fmt.Sprintf("page %d empty", page))
			continue
		}
		chunks = append(chunks, pageChunks...)
		s.notify(ctx, progress, doc.TotalPages, page, fmt.Sprintf("page %d chunked", page))
	}
	report.ChunkCount = len(chunks)

	inserted, chunkErrs, err := s.embedAndInsert(ctx, chunks)
	if err != nil {
		return report, err
	}
	report.InsertedCount = inserted
	report.ChunkErrors = chunkErrs

	if s.docStore != nil {
		if err := s.docStore.SaveDocument(ctx, &doc); err != nil {
			return report, fmt.Errorf("failed to save document metadata: %w", err)
		}
	}

	log.Printf("Ingested document %s: %d chunks, %d inserted, %d page errors",
		doc.ID, report.ChunkCount, report.InsertedCount, len(report.PageErrors))
	return report, nil
}

// embedAndInsert embeds chunks batch by batch. When a whole batch fails it
// falls back to embedding its items one at a time, so the report names the
// individual chunks that failed instead of failing the batch opaquely.
func (s *IngestService) embedAndInsert(ctx context.Context, chunks []types.Chunk) (int, []types.ChunkError, error) {
	inserted := 0
	var chunkErrs []types.ChunkError

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.Printf("Warning: batch embed failed (%v), retrying items individually", err)
			okChunks, okVectors, itemErrs := s.embedIndividually(ctx, batch)
			chunkErrs = append(chunkErrs, itemErrs...)
			if len(okChunks) > 0 {
				if err := s.vectorDB.BatchInsertChunks(ctx, okChunks, okVectors); err != nil {
					return inserted, chunkErrs, fmt.Errorf("vector insert failed: %w", err)
				}
				inserted += len(okChunks)
			}
			continue
		}

		if err := s.vectorDB.BatchInsertChunks(ctx, batch, vectors); err != nil {
			return inserted, chunkErrs, fmt.Errorf("vector insert failed: %w", err)
		}
		inserted += len(batch)
	}
	return inserted, chunkErrs, nil
}

func (s *IngestService) embedIndividually(ctx context.Context, batch []types.Chunk) ([]types.Chunk, [][]float32, []types.ChunkError) {
	var okChunks []types.Chunk
	var okVectors [][]float32
	var errs []types.ChunkError
	for i := range batch {
		vector, err := s.embedder.Embed(ctx, batch[i].Text)
		if err != nil {
			embErr := &types.EmbeddingError{ChunkID: batch[i].ID, Attempts: 1, Err: err}
			errs = append(errs, types.ChunkError{
				ChunkID: batch[i].ID,
				Page:    batch[i].Page,
				Error:   embErr.Error(),
			})
			continue
		}
		okChunks = append(okChunks, batch[i])
		okVectors = append(okVectors, vector)
	}
	return okChunks, okVectors, errs
}

func (s *IngestService) notify(ctx context.Context, progress chan<- types.ProcessingDocumentStatus, totalPages, page int, message string) {
	if progress == nil {
		return
	}
	status := types.ProcessingDocumentStatus{
		Status:         "processing",
		Message:        message,
		Progress:       float64(page) / float64(totalPages),
		TotalPages:     totalPages,
		ProcessedPages: page,
	}
	// The consumer may abandon the request mid-ingestion; drop the update
	// instead of blocking forever on a channel nobody drains.
	select {
	case progress <- status:
	case <-ctx.Done():
	}
}

// GetFileNameWithoutExt extracts the filename without extension from a path.
func GetFileNameWithoutExt(path string) string {
	base := filepath.Base(path)
	if idx := strings.LastIndex(base, "."); idx != -1 {
		base = base[:idx]
	}
	return base
}
