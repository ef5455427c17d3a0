package server

import "context"

// Turn is one message of generation input, including the system prompt.
type Turn struct {
	Role    string
	Content string
}

// Generator produces assistant tokens for a conversation history. Emit is
// called once per token in order; returning an error from emit stops the
// generation and propagates the error.
type Generator interface {
	// Ready reports whether the model can serve requests.
	Ready() bool
	// ModelID identifies the loaded model.
	ModelID() string
	// Generate streams the completion for history through emit.
	Generate(ctx context.Context, history []Turn, emit func(token string) error) error
}
