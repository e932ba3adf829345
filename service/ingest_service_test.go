package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/types"
)

// fakeExtractor serves canned page text; a missing page entry fails with an
// extraction error.
type fakeExtractor struct {
	info  DocumentInfo
	pages map[int]string
}

func (e *fakeExtractor) Info(ctx context.Context, filePath string) (DocumentInfo, error) {
	return e.info, nil
}

func (e *fakeExtractor) PageText(ctx context.Context, filePath string, page int) (string, error) {
	text, ok := e.pages[page]
	if !ok {
		return "", fmt.Errorf("corrupt page stream")
	}
	return text, nil
}

// failingBatchEmbedder rejects whole batches and individual texts containing
// the poison string.
type failingBatchEmbedder struct {
	poison string
}

func (e failingBatchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.poison) {
		return nil, errors.New("provider rejected input")
	}
	return []float32{1, 0}, nil
}

func (e failingBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("batch endpoint down")
}

func writeTestFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestIngestSkipsFailedPageAndSucceeds(t *testing.T) {
	extractor := &fakeExtractor{
		info: DocumentInfo{Title: "Deep Currents", Author: "Reyes, M.", TotalPages: 3},
		pages: map[int]string{
			1: "Ocean currents redistribute heat between the equator and the poles.",
			3: "Thermohaline circulation is driven by density differences in seawater.",
		},
	}
	store := database.NewMemoryStore()
	svc := NewIngestService(extractor, NewChunkService(DefaultChunkServiceConfig),
		fixedEmbedder{vector: []float32{1, 0}}, store, nil, 64)

	path := writeTestFile(t, []byte("pdf bytes"))
	report, err := svc.Ingest(context.Background(), path, types.UploadRequest{Tags: []string{"oceanography"}}, nil)

	require.NoError(t, err, "one bad page must not fail the document")
	assert.Equal(t, 2, report.ChunkCount)
	assert.Equal(t, 2, report.InsertedCount)
	require.Len(t, report.PageErrors, 1)
	assert.Equal(t, 2, report.PageErrors[0].Page)

	assert.Equal(t, "Deep Currents", report.Document.Title)
	assert.Equal(t, 3, report.Document.TotalPages)

	results, err := store.SearchSimilar(context.Background(), []float32{1, 0}, types.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, report.Document.ID, r.Chunk.DocumentID)
		assert.Equal(t, []string{"oceanography"}, r.Chunk.Metadata.Tags)
	}
}

func TestIngestRecordsEmptyPages(t *testing.T) {
	extractor := &fakeExtractor{
		info: DocumentInfo{Title: "Blank Middle", TotalPages: 2},
		pages: map[int]string{
			1: "Some actual page content worth keeping around.",
			2: "   \n\t  ",
		},
	}
	svc := NewIngestService(extractor, NewChunkService(DefaultChunkServiceConfig),
		fixedEmbedder{vector: []float32{1, 0}}, database.NewMemoryStore(), nil, 64)

	path := writeTestFile(t, []byte("pdf bytes"))
	report, err := svc.Ingest(context.Background(), path, types.UploadRequest{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunkCount)
	require.Len(t, report.PageErrors, 1)
	assert.Equal(t, 2, report.PageErrors[0].Page)
}

func TestIngestFallsBackToIndividualEmbedding(t *testing.T) {
	extractor := &fakeExtractor{
		info: DocumentInfo{Title: "Mixed Batch", TotalPages: 2},
		pages: map[int]string{
			1: "A healthy page that embeds without trouble.",
			2: "POISON page the provider refuses to embed.",
		},
	}
	store := database.NewMemoryStore()
	svc := NewIngestService(extractor, NewChunkService(DefaultChunkServiceConfig),
		failingBatchEmbedder{poison: "POISON"}, store, nil, 64)

	path := writeTestFile(t, []byte("pdf bytes"))
	report, err := svc.Ingest(context.Background(), path, types.UploadRequest{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, report.ChunkCount)
	assert.Equal(t, 1, report.InsertedCount)
	require.Len(t, report.ChunkErrors, 1)
	assert.Equal(t, 2, report.ChunkErrors[0].Page)
}

func TestDocumentIDContentBased(t *testing.T) {
	a := DocumentID([]byte("same bytes"))
	b := DocumentID([]byte("same bytes"))
	c := DocumentID([]byte("different bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestIngestDoesNotBlockOnAbandonedProgress(t *testing.T) {
	extractor := &fakeExtractor{
		info: DocumentInfo{Title: "Abandoned", TotalPages: 2},
		pages: map[int]string{
			1: "First page content with enough words to chunk.",
			2: "Second page content with enough words to chunk.",
		},
	}
	svc := NewIngestService(extractor, NewChunkService(DefaultChunkServiceConfig),
		fixedEmbedder{vector: []float32{1, 0}}, database.NewMemoryStore(), nil, 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nobody ever drains this channel, as when an upload client disconnects.
	progress := make(chan types.ProcessingDocumentStatus)
	path := writeTestFile(t, []byte("pdf bytes"))

	done := make(chan struct{})
	go func() {
		svc.Ingest(ctx, path, types.UploadRequest{}, progress)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingest blocked sending progress to an abandoned channel")
	}
}

func TestIngestReportsProgress(t *testing.T) {
	extractor := &fakeExtractor{
		info: DocumentInfo{Title: "Progress", TotalPages: 2},
		pages: map[int]string{
			1: "First page content with enough words to chunk.",
			2: "Second page content with enough words to chunk.",
		},
	}
	svc := NewIngestService(extractor, NewChunkService(DefaultChunkServiceConfig),
		fixedEmbedder{vector: []float32{1, 0}}, database.NewMemoryStore(), nil, 64)

	progress := make(chan types.ProcessingDocumentStatus, 8)
	path := writeTestFile(t, []byte("pdf bytes"))
	_, err := svc.Ingest(context.Background(), path, types.UploadRequest{}, progress)

	require.NoError(t, err)
	close(progress)
	var updates []types.ProcessingDocumentStatus
	for status := range progress {
		updates = append(updates, status)
	}
	require.Len(t, updates, 2)
	assert.Equal(t, 1, updates[0].ProcessedPages)
	assert.Equal(t, 2, updates[1].ProcessedPages)
	assert.Equal(t, 2, updates[1].TotalPages)
}
