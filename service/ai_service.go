package service

import (
	"context"

	"github.com/tieubaoca/librarian-be/types"
)

// AIService is the language model capability consumed by the answer
// pipeline. GenerateStream emits fragments through the handler and returns
// the fully assembled text, which is what verification operates on.
type AIService interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string, handler types.StreamHandler) (string, error)
}
