package parley

import "context"

// Callbacks receives classified stream events. Callbacks fire synchronously
// with respect to event order: events are delivered in the exact order they
// were classified, never reordered or batched. Nil fields are skipped.
type Callbacks struct {
	OnToken    func(text string)
	OnMetadata func(md GenerationMetadata)
	OnError    func(message string)
	OnDone     func()
}

// Token invokes OnToken when set.
func (c Callbacks) Token(text string) {
	if c.OnToken != nil {
		c.OnToken(text)
	}
}

// Metadata invokes OnMetadata when set.
func (c Callbacks) Metadata(md GenerationMetadata) {
	if c.OnMetadata != nil {
		c.OnMetadata(md)
	}
}

// Error invokes OnError when set.
func (c Callbacks) Error(message string) {
	if c.OnError != nil {
		c.OnError(message)
	}
}

// Done invokes OnDone when set. Sessions guarantee this fires exactly once
// per session, and never after cancellation.
func (c Callbacks) Done() {
	if c.OnDone != nil {
		c.OnDone()
	}
}

// Handle cancels an in-flight stream session. Cancellation is silent:
// an aborted session invokes neither OnError nor OnDone, and the caller is
// responsible for any resulting state transition.
type Handle interface {
	Cancel()
}

// Streamer starts one generation turn against the remote endpoint. At most
// one session may be active per conversation at a time; the conversation
// state machine enforces this by refusing to send while streaming.
type Streamer interface {
	Stream(ctx context.Context, conversationID, message string, cb Callbacks) Handle
}

// Deleter notifies the remote endpoint that a conversation was removed.
// Callers treat failures as best-effort and swallow them.
type Deleter interface {
	DeleteConversation(ctx context.Context, id string) error
}
