package types

// SessionState tracks an answer session through the query pipeline.
type SessionState string

const (
	SessionStateQuerying   SessionState = "querying"
	SessionStateRetrieving SessionState = "retrieving"
	SessionStateReranking  SessionState = "reranking"
	SessionStateGenerating SessionState = "generating"
	SessionStateVerifying  SessionState = "verifying"
	SessionStateDelivered  SessionState = "delivered"
	SessionStateFailed     SessionState = "failed"
)

// VerificationStatus is the outcome of checking a citation against its
// source chunk. An inconclusive check is never upgraded to supported.
type VerificationStatus string

const (
	VerificationUnverified  VerificationStatus = "unverified"
	VerificationSupported   VerificationStatus = "supported"
	VerificationUnsupported VerificationStatus = "unsupported"
	VerificationNotChecked  VerificationStatus = "not_checked"
)

// RetrievalCandidate is a chunk returned by the vector index for a query.
// RerankScore stays nil until the reranker has scored the candidate.
type RetrievalCandidate struct {
	ChunkID         string   `json:"chunk_id"`
	Chunk           Chunk    `json:"chunk"`
	SimilarityScore float32  `json:"similarity_score"`
	RerankScore     *float32 `json:"rerank_score,omitempty"`
}

// FinalScore fuses rerank and similarity scores with the configured weight.
// Without a rerank score the raw similarity is used unchanged.
func (c RetrievalCandidate) FinalScore(rerankWeight float64) float64 {
	if c.RerankScore == nil {
		return float64(c.SimilarityScore)
	}
	return rerankWeight*float64(*c.RerankScore) + (1-rerankWeight)*float64(c.SimilarityScore)
}

// CitationMarker links a marker number in generated text to a source chunk.
// Marker numbers are session-scoped and strictly increasing; the same chunk
// always reuses its existing marker within a session.
type CitationMarker struct {
	Seq        int                `json:"seq"`
	ChunkID    string             `json:"chunk_id"`
	DocumentID string             `json:"document_id"`
	Page       int                `json:"page"`
	Score      float32            `json:"score"`
	Status     VerificationStatus `json:"status"`
}

// FlaggedSentence is a sentence whose citations failed verification. The
// span offsets address the final answer text.
type FlaggedSentence struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	Markers []int  `json:"markers"`
}

// VerificationSummary aggregates the per-marker verification outcome of an
// answer.
type VerificationSummary struct {
	SupportedCount   int               `json:"supported_count"`
	UnsupportedCount int               `json:"unsupported_count"`
	NotCheckedCount  int               `json:"not_checked_count"`
	Flagged          []FlaggedSentence `json:"flagged,omitempty"`
}

// AnswerSession holds everything produced while answering one query. It is
// created per query and released once the answer is delivered; a failed
// session keeps its retrieved candidates for diagnostic replay.
type AnswerSession struct {
	ID           string               `json:"id"`
	Query        string               `json:"query"`
	State        SessionState         `json:"state"`
	Segments     []string             `json:"segments,omitempty"`
	Answer       string               `json:"answer"`
	Markers      []CitationMarker     `json:"markers"`
	References   []ReferenceEntry     `json:"references"`
	Candidates   []RetrievalCandidate `json:"candidates,omitempty"`
	Verification VerificationSummary  `json:"verification"`
	Error        string               `json:"error,omitempty"`
	CreatedAt    int64                `json:"created_at"`
}
