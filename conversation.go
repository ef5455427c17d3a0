package parley

import (
	"sort"
	"time"
)

// titleLimit is the number of runes of the first user message used as the
// conversation title.
const titleLimit = 50

// Conversation is an ordered message history. While a generation is in
// flight the last message is always the assistant placeholder for that turn.
type Conversation struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WithMessages returns a copy of the conversation with the given message
// slice and an updated UpdatedAt. The original slice is not retained.
func (c Conversation) WithMessages(msgs []Message, now time.Time) Conversation {
	c.Messages = msgs
	c.UpdatedAt = now
	return c
}

// LastMessage returns the trailing message and true, or the zero value and
// false when the conversation is empty.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// LastUserMessage scans backward from the end and returns the nearest user
// message, or false when none exists.
func (c Conversation) LastUserMessage() (Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// Summary returns the listing projection of the conversation.
func (c Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}

// ConversationSummary is the projection used for listing conversations.
type ConversationSummary struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// DeriveTitle derives a conversation title from the first user message:
// the first 50 runes, with an ellipsis marker when the message is longer.
// Titles are derived once and never changed afterward.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}

// Summaries projects a conversation map to summaries ordered by UpdatedAt
// descending. The ordering is recomputed on every call, not stored.
func Summaries(conversations map[string]Conversation) []ConversationSummary {
	result := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		result = append(result, c.Summary())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}
