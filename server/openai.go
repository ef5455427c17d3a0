package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

var _ Generator = (*OpenAIGenerator)(nil)

// OpenAIGenerator streams completions from an OpenAI-compatible chat
// endpoint. Pointing baseURL at a local llama.cpp or vLLM server works the
// same as the hosted API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for the given model. baseURL may
// be empty to use the default OpenAI endpoint.
func NewOpenAIGenerator(apiKey, baseURL, model string) (*OpenAIGenerator, error) {
	if model == "" {
		return nil, errors.New("model is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Ready implements Generator. The upstream endpoint owns model loading, so
// a constructed generator is always ready.
func (g *OpenAIGenerator) Ready() bool { return true }

// ModelID implements Generator.
func (g *OpenAIGenerator) ModelID() string { return g.model }

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, history []Turn, emit func(token string) error) error {
	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, t := range history {
		messages[i] = openai.ChatCompletionMessage{Role: t.Role, Content: t.Content}
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("create completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive completion chunk: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := emit(delta); err != nil {
				return err
			}
		}
	}
}
