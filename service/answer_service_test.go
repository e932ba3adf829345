package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/types"
)

type fixedEmbedder struct {
	vector []float32
}

func (e fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector, nil
}

func (e fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

// scriptedAI returns a canned answer or error and counts attempts.
type scriptedAI struct {
	answer    string
	fragments []string
	err       error
	calls     int
}

func (a *scriptedAI) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func (a *scriptedAI) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, handler types.StreamHandler) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	for _, frag := range a.fragments {
		handler(frag)
	}
	return a.answer, nil
}

func seedStore(t *testing.T, store *database.MemoryStore, chunks []types.Chunk, vectors [][]float32) {
	t.Helper()
	require.NoError(t, store.BatchInsertChunks(context.Background(), chunks, vectors))
}

func newTestAnswerService(store *database.MemoryStore, ai AIService) *AnswerService {
	retrieval := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0}}, store, 3)
	rerank := NewRerankService(nil, 0.7)
	verifier := NewVerifyService(0.3)
	svc := NewAnswerService(retrieval, rerank, ai, verifier, 5, 2)
	svc.backoff = func(int) time.Duration { return 0 }
	return svc
}

func solarWindChunks() ([]types.Chunk, [][]float32) {
	chunks := []types.Chunk{
		{
			ID:         "chunk-solar",
			DocumentID: "doc-energy",
			Page:       4,
			Text:       "Solar panels convert sunlight into electricity using photovoltaic cells.",
			Metadata:   types.ChunkMetadata{Title: "Renewables", Author: "Grey, A."},
			CreatedAt:  1,
		},
		{
			ID:         "chunk-wind",
			DocumentID: "doc-energy",
			Page:       9,
			Text:       "Wind turbines generate power from moving air over open plains.",
			Metadata:   types.ChunkMetadata{Title: "Renewables", Author: "Grey, A."},
			CreatedAt:  2,
		},
	}
	// Solar aligns exactly with the fixed query vector, wind only partially,
	// so the candidate order is known in advance.
	vectors := [][]float32{{1, 0}, {0.6, 0.8}}
	return chunks, vectors
}

func TestAskNoEvidenceReturnsHonestAnswer(t *testing.T) {
	ai := &scriptedAI{answer: "should never be used"}
	svc := newTestAnswerService(database.NewMemoryStore(), ai)

	session, err := svc.Ask(context.Background(), types.QueryRequest{Question: "anything at all"})

	require.NoError(t, err)
	assert.Equal(t, types.SessionStateDelivered, session.State)
	assert.Equal(t, NoEvidenceAnswer, session.Answer)
	assert.Empty(t, session.Markers)
	assert.Empty(t, session.References)
	assert.Equal(t, 0, ai.calls, "the model must not be called without evidence")
}

func TestAskDeliversVerifiedAnswerWithReferences(t *testing.T) {
	store := database.NewMemoryStore()
	chunks, vectors := solarWindChunks()
	seedStore(t, store, chunks, vectors)

	ai := &scriptedAI{
		answer: "Solar panels convert sunlight into electricity [1]. " +
			"Wind turbines generate power from moving air [2].",
	}
	svc := newTestAnswerService(store, ai)

	session, err := svc.Ask(context.Background(), types.QueryRequest{Question: "how is renewable power made"})

	require.NoError(t, err)
	assert.Equal(t, types.SessionStateDelivered, session.State)
	assert.Equal(t, ai.answer, session.Answer)

	require.Len(t, session.References, 2)
	assert.Equal(t, 1, session.References[0].Marker)
	assert.Equal(t, 4, session.References[0].Page)
	assert.Equal(t, "doc-energy", session.References[0].DocumentID)
	assert.Equal(t, 2, session.References[1].Marker)
	assert.Equal(t, 9, session.References[1].Page)

	// Every rendered reference resolves back to its exact source page.
	for _, ref := range session.References {
		docID, page, err := ParseReference(ref.Citation)
		require.NoError(t, err)
		assert.Equal(t, ref.DocumentID, docID)
		assert.Equal(t, ref.Page, page)
	}

	assert.Equal(t, 2, session.Verification.SupportedCount)
	assert.Equal(t, 0, session.Verification.UnsupportedCount)
}

func TestAskSameChunkCitedTwiceYieldsOneReference(t *testing.T) {
	store := database.NewMemoryStore()
	chunks, vectors := solarWindChunks()
	seedStore(t, store, chunks[:1], vectors[:1])

	ai := &scriptedAI{
		answer: "Solar panels convert sunlight into electricity [1]. " +
			"Photovoltaic cells inside solar panels convert sunlight [1].",
	}
	svc := newTestAnswerService(store, ai)

	session, err := svc.Ask(context.Background(), types.QueryRequest{Question: "how do solar panels work"})

	require.NoError(t, err)
	require.Len(t, session.References, 1)
	assert.Equal(t, 1, session.References[0].Marker)
	assert.Len(t, session.Markers, 1)
}

func TestAskFlagsUnsupportedSentence(t *testing.T) {
	store := database.NewMemoryStore()
	chunks, vectors := solarWindChunks()
	seedStore(t, store, chunks, vectors)

	ai := &scriptedAI{
		answer: "Solar panels convert sunlight into electricity [1]. " +
			"Nuclear fusion reactors already supply most households [2].",
	}
	svc := newTestAnswerService(store, ai)

	session, err := svc.Ask(context.Background(), types.QueryRequest{Question: "how is renewable power made"})

	require.NoError(t, err)
	assert.Equal(t, types.SessionStateDelivered, session.State)
	assert.Equal(t, 1, session.Verification.SupportedCount)
	assert.Equal(t, 1, session.Verification.UnsupportedCount)
	require.Len(t, session.Verification.Flagged, 1)
	assert.Contains(t, session.Verification.Flagged[0].Text, "fusion")

	// The unsupported citation still appears in the reference list, marked.
	require.Len(t, session.References, 2)
	assert.Equal(t, types.VerificationUnsupported, session.References[1].Status)
}

func TestAskRetriesExhaustedFailsSession(t *testing.T) {
	store := database.NewMemoryStore()
	chunks, vectors := solarWindChunks()
	seedStore(t, store, chunks, vectors)

	ai := &scriptedAI{err: &types.GenerationError{Retryable: true, Err: errors.New("rate limited")}}
	svc := newTestAnswerService(store, ai)

	session, err := svc.Ask(context.Background(), types.QueryRequest{Question: "how is renewable power made"})

	require.Error(t, err)
	assert.Equal(t, 2, ai.calls)
	assert.Equal(t, types.SessionStateFailed, session.State)
	assert.Empty(t, session.Answer)
	assert.Empty(t, session.Markers)
	assert.Empty(t, session.References)
	assert.NotEmpty(t, session.Candidates, "failed sessions keep retrieved candidates")
}

func TestAskNonRetryableErrorStopsImmediately(t *testing.T) {
	store := database.NewMemoryStore()
	chunks, vectors := solarWindChunks()
	seedStore(t, store, chunks, vectors)

	ai := &scriptedAI{err: &types.GenerationError{Retryable: false, Err: errors.New("invalid request")}}
	svc := newTestAnswerService(store, ai)

	_, err := svc.Ask(context.Background(), types.QueryRequest{Question: "how is renewable power made"})

	require.Error(t, err)
	assert.Equal(t, 1, ai.calls)
}

func TestAskRejectsUnknownFormatUpFront(t *testing.T) {
	ai := &scriptedAI{}
	svc := newTestAnswerService(database.NewMemoryStore(), ai)

	session, err := svc.Ask(context.Background(), types.QueryRequest{
		Question: "anything",
		Format:   "chicago",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
	assert.Equal(t, types.SessionStateFailed, session.State)
	assert.Equal(t, 0, ai.calls)
}

func TestAskStreamForwardsFragments(t *testing.T) {
	store := database.NewMemoryStore()
	chunks, vectors := solarWindChunks()
	seedStore(t, store, chunks[:1], vectors[:1])

	answer := "Solar panels convert sunlight into electricity [1]."
	ai := &scriptedAI{
		answer:    answer,
		fragments: []string{"Solar panels convert ", "sunlight into electricity [1]."},
	}
	svc := newTestAnswerService(store, ai)

	var received []string
	session, err := svc.AskStream(context.Background(), types.QueryRequest{Question: "how do solar panels work"},
		func(fragment string) {
			received = append(received, fragment)
		})

	require.NoError(t, err)
	assert.Equal(t, answer, strings.Join(received, ""))
	assert.Equal(t, answer, session.Answer)
	assert.Equal(t, 1, session.Verification.SupportedCount)
}
