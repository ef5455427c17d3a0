package parley

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrConversationNotFound indicates the requested conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrStreaming indicates an operation was refused because a generation
	// is already in flight.
	ErrStreaming = errors.New("generation in flight")
)
