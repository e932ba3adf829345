package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tieubaoca/librarian-be/types"
)

// OpenAIService generates answers through an OpenAI-compatible chat endpoint.
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(baseURL, apiKey, model string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIService{
		client: client,
		model:  model,
	}
}

func (s *OpenAIService) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Model: s.model,
		},
	)
	if err != nil {
		return "", &types.GenerationError{Retryable: true, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &types.GenerationError{Retryable: true, Err: errors.New("no response generated")}
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams the answer fragment by fragment. On a mid-stream
// failure the partial text is discarded and an error returned; a half-formed
// answer is never presented as final.
func (s *OpenAIService) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, handler types.StreamHandler) (string, error) {
	stream, err := s.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Model: s.model,
		},
	)
	if err != nil {
		return "", &types.GenerationError{Retryable: true, Err: err}
	}
	defer stream.Close()

	var assembled strings.Builder
	for {
		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				return assembled.String(), nil
			}
			return "", &types.GenerationError{Retryable: true, Err: err}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		assembled.WriteString(fragment)
		if handler != nil {
			handler(fragment)
		}
	}
}
