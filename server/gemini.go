package server

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator streams completions from the Google Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator for the given model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if model == "" {
		return nil, errors.New("model is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiGenerator{client: gc, model: model}, nil
}

// Ready implements Generator. The Gemini API owns model loading, so a
// constructed generator is always ready.
func (g *GeminiGenerator) Ready() bool { return true }

// ModelID implements Generator.
func (g *GeminiGenerator) ModelID() string { return g.model }

// Generate implements Generator. The system turn maps to the request's
// system instruction; user and assistant turns become "user" and "model"
// contents.
func (g *GeminiGenerator) Generate(ctx context.Context, history []Turn, emit func(token string) error) error {
	var contents []*genai.Content
	config := &genai.GenerateContentConfig{}
	for _, t := range history {
		switch t.Role {
		case "system":
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: t.Content}},
			}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: t.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: t.Content}},
			})
		}
	}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.Thought || part.Text == "" {
					continue
				}
				if err := emit(part.Text); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
