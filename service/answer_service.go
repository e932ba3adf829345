package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/librarian-be/types"
)

const answerSystemPrompt = `You are a research librarian answering questions over a corpus of academic documents.
Answer using ONLY the numbered context passages provided. After every factual claim, cite the passage that supports it with its marker, e.g. [2].
Use only the marker numbers given; never invent new ones. If the passages do not contain the answer, say so plainly instead of guessing.`

// NoEvidenceAnswer is returned verbatim when retrieval finds nothing; the
// system never fabricates an answer without sources.
const NoEvidenceAnswer = "No supporting evidence was found in the corpus for this question."

// AnswerService orchestrates one query through retrieval, reranking,
// generation and verification. Sessions are independent: the only shared
// state underneath is the read-only vector index and document store.
type AnswerService struct {
	retrieval  *RetrievalService
	rerank     *RerankService
	ai         AIService
	verifier   *VerifyService
	topK       int
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewAnswerService(
	retrieval *RetrievalService,
	rerank *RerankService,
	ai AIService,
	verifier *VerifyService,
	topK int,
	maxRetries int,
) *AnswerService {
	if topK <= 0 {
		topK = 5
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &AnswerService{
		retrieval:  retrieval,
		rerank:     rerank,
		ai:         ai,
		verifier:   verifier,
		topK:       topK,
		maxRetries: maxRetries,
		backoff:    backoffDelay,
	}
}

// Ask answers a query and returns the finished session. A failed session is
// returned alongside the error with its retrieved candidates intact for
// diagnostic replay.
func (s *AnswerService) Ask(ctx context.Context, req types.QueryRequest) (*types.AnswerSession, error) {
	return s.ask(ctx, req, nil)
}

// AskStream behaves like Ask but forwards answer fragments to the handler
// as they arrive. Verification still runs on the fully assembled text once
// streaming completes.
func (s *AnswerService) AskStream(ctx context.Context, req types.QueryRequest, handler types.StreamHandler) (*types.AnswerSession, error) {
	return s.ask(ctx, req, handler)
}

func (s *AnswerService) ask(ctx context.Context, req types.QueryRequest, handler types.StreamHandler) (*types.AnswerSession, error) {
	session := &types.AnswerSession{
		ID:        uuid.NewString(),
		Query:     req.Question,
		State:     types.SessionStateQuerying,
		CreatedAt: time.Now().Unix(),
	}
	format := req.Format
	if format == "" {
		format = FormatNumeric
	}
	// Reject an unknown export format up front, before any work is done.
	if _, err := FormatCitation(format, &types.CitationMarker{}, types.ChunkMetadata{}); err != nil {
		return s.fail(session, err), err
	}
	k := req.TopK
	if k <= 0 {
		k = s.topK
	}

	session.State = types.SessionStateRetrieving
	candidates, err := s.retrieval.Retrieve(ctx, req.Question, k, req.Filter)
	if err != nil {
		return s.fail(session, err), err
	}
	session.Candidates = candidates

	// Zero matches is a valid outcome: deliver an honest empty-handed answer
	// with no citation markers rather than fabricating one.
	if len(candidates) == 0 {
		session.Answer = NoEvidenceAnswer
		session.Segments = []string{NoEvidenceAnswer}
		session.State = types.SessionStateDelivered
		if handler != nil {
			handler(NoEvidenceAnswer)
		}
		return session, nil
	}

	session.State = types.SessionStateReranking
	reranked := s.rerank.Rerank(ctx, req.Question, candidates, k)

	// Markers are pre-assigned to the context chunks so the model cites
	// numbers the citation manager owns instead of inventing its own.
	citations := NewCitationSession()
	var prompt strings.Builder
	prompt.WriteString("Question: ")
	prompt.WriteString(req.Question)
	prompt.WriteString("\n\nContext passages:\n")
	for _, cand := range reranked {
		marker := citations.AssignMarker(cand.Chunk, cand.SimilarityScore)
		fmt.Fprintf(&prompt, "\n[%d] (%s, p. %d)\n%s\n",
			marker.Seq, cand.Chunk.Metadata.Title, cand.Chunk.Page, cand.Chunk.Text)
	}

	session.State = types.SessionStateGenerating
	answer, err := s.generate(ctx, prompt.String(), handler)
	if err != nil {
		// Markers allocated for an answer that was never delivered are
		// discarded with the table; nothing persists.
		citations.Release()
		return s.fail(session, err), err
	}

	session.State = types.SessionStateVerifying
	session.Answer = answer
	session.Segments = []string{answer}
	session.Verification = s.verifier.Verify(answer, citations)

	// Only markers the model actually cited go into the reference list.
	used := extractMarkers(answer)
	session.References = make([]types.ReferenceEntry, 0, len(used))
	for _, seq := range used {
		marker, ok := citations.Marker(seq)
		if !ok {
			continue
		}
		chunk, _ := citations.Chunk(marker.ChunkID)
		line, err := FormatCitation(format, marker, chunk.Metadata)
		if err != nil {
			citations.Release()
			return s.fail(session, err), err
		}
		session.References = append(session.References, types.ReferenceEntry{
			Marker:     marker.Seq,
			DocumentID: marker.DocumentID,
			Title:      chunk.Metadata.Title,
			Page:       marker.Page,
			Citation:   line,
			Status:     marker.Status,
		})
		session.Markers = append(session.Markers, *marker)
	}

	session.State = types.SessionStateDelivered
	citations.Release()
	return session, nil
}

// generate calls the model with bounded retries and backoff. Partial text
// from a failed attempt is discarded; a canceled context stops retrying
// immediately.
func (s *AnswerService) generate(ctx context.Context, userPrompt string, handler types.StreamHandler) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("Retrying generation, attempt %d", attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}
		var answer string
		var err error
		if handler != nil {
			answer, err = s.ai.GenerateStream(ctx, answerSystemPrompt, userPrompt, handler)
		} else {
			answer, err = s.ai.Generate(ctx, answerSystemPrompt, userPrompt)
		}
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !types.IsRetryableGeneration(err) {
			return "", err
		}
	}
	return "", lastErr
}

// fail moves the session to its terminal failed state, keeping whatever
// candidates were already retrieved.
func (s *AnswerService) fail(session *types.AnswerSession, err error) *types.AnswerSession {
	session.State = types.SessionStateFailed
	session.Error = err.Error()
	session.Answer = ""
	session.Markers = nil
	session.References = nil
	return session
}
