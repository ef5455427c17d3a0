package parley

import "time"

// Message is a single conversation message. Messages are values: every
// mutation produces a new Message, never an in-place edit.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// WithContent returns a copy of the message with the given content.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// AppendContent returns a copy of the message with text appended.
func (m Message) AppendContent(text string) Message {
	m.Content += text
	return m
}
