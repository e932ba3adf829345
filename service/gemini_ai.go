package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/librarian-be/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiService generates answers through the Gemini API, rotating across
// the configured API keys when a call fails.
type GeminiService struct {
	apiKeys    []string
	currentKey int
	client     *genai.Client
	modelName  string
	mu         sync.Mutex
}

func NewGeminiService(apiKeys []string, modelName string) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys:    apiKeys,
		currentKey: 0,
		modelName:  modelName,
	}

	if err := service.initClient(); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *GeminiService) initClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

func (s *GeminiService) rotateAPIKey() error {
	s.mu.Lock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	if err := s.client.Close(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.initClient()
}

func (s *GeminiService) model(systemPrompt string) *genai.GenerativeModel {
	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	return model
}

func (s *GeminiService) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.model(systemPrompt).GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		if rotateErr := s.rotateAPIKey(); rotateErr != nil {
			return "", &types.GenerationError{Retryable: false, Err: rotateErr}
		}
		return "", &types.GenerationError{Retryable: true, Err: err}
	}
	text := collectParts(resp)
	if text == "" {
		return "", &types.GenerationError{Retryable: true, Err: errors.New("no response generated")}
	}
	return text, nil
}

func (s *GeminiService) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, handler types.StreamHandler) (string, error) {
	iter := s.model(systemPrompt).GenerateContentStream(ctx, genai.Text(userPrompt))

	var assembled strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return assembled.String(), nil
		}
		if err != nil {
			if rotateErr := s.rotateAPIKey(); rotateErr != nil {
				return "", &types.GenerationError{Retryable: false, Err: rotateErr}
			}
			return "", &types.GenerationError{Retryable: true, Err: err}
		}
		fragment := collectParts(resp)
		if fragment == "" {
			continue
		}
		assembled.WriteString(fragment)
		if handler != nil {
			handler(fragment)
		}
	}
}

func collectParts(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
