package types

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat rejects a citation export request for an unknown
// format before any output is produced.
var ErrUnsupportedFormat = errors.New("unsupported citation format")

// ExtractionError reports a page that could not be parsed. It is recoverable
// and recorded per page.
type ExtractionError struct {
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports an embedding provider failure for a single chunk
// after retries were exhausted.
type EmbeddingError struct {
	ChunkID  string
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for chunk %s after %d attempts: %v", e.ChunkID, e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError reports a language model failure. Retryable errors may be
// reattempted with backoff; any partial text is discarded either way.
type GenerationError struct {
	Retryable bool
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsRetryableGeneration reports whether err is a generation failure worth
// another attempt.
func IsRetryableGeneration(err error) bool {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Retryable
	}
	return false
}
