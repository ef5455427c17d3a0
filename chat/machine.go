// Package chat implements the conversation state machine: it owns the
// conversation store, consumes classified stream events and user actions,
// and produces the next conversation state, persisting after every change.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parleychat/parley"
)

// Store persists the conversation map wholesale. Failures are non-fatal:
// the in-memory state remains authoritative for the session.
type Store interface {
	Save(conversations map[string]parley.Conversation) error
}

// Machine is the per-conversation model of messages and streaming status.
// It exclusively owns and mutates the conversation map; every transition is
// applied as an atomic, all-or-nothing update.
//
// At most one generation is in flight at a time: Send refuses while
// streaming. Stream events stay bound to the conversation id captured when
// the session started, not to whichever conversation is active at delivery
// time.
type Machine struct {
	mu       sync.Mutex
	streamer parley.Streamer
	store    Store
	remote   parley.Deleter
	onChange func()
	now      func() time.Time
	newID    func() string

	conversations map[string]parley.Conversation
	activeID      string
	streaming     bool
	metadata      *parley.GenerationMetadata
	handle        parley.Handle

	// turn counts generation turns. Session callbacks carry the turn they
	// were started under; appliers ignore callbacks from a superseded turn,
	// so a session still unwinding after Stop cannot touch state.
	turn uint64
}

// Option configures a [Machine].
type Option func(*Machine)

// WithStore sets the persistence backend. Save errors are swallowed.
func WithStore(s Store) Option {
	return func(m *Machine) { m.store = s }
}

// WithRemote sets the endpoint notified on conversation deletion,
// best-effort.
func WithRemote(d parley.Deleter) Option {
	return func(m *Machine) { m.remote = d }
}

// WithConversations seeds the machine with a loaded conversation map. The
// machine takes ownership of the map.
func WithConversations(conversations map[string]parley.Conversation) Option {
	return func(m *Machine) { m.conversations = conversations }
}

// WithActive sets the initially active conversation id.
func WithActive(id string) Option {
	return func(m *Machine) { m.activeID = id }
}

// WithClock overrides the time source. Useful for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDFunc overrides the id generator. Useful for deterministic tests.
func WithIDFunc(newID func() string) Option {
	return func(m *Machine) { m.newID = newID }
}

// WithOnChange sets a hook invoked after every observable transition, with
// no locks held. UI event loops use it to schedule a redraw.
func WithOnChange(fn func()) Option {
	return func(m *Machine) { m.onChange = fn }
}

// New creates a Machine. When no active id is configured, an arbitrary
// loaded conversation becomes active, or a fresh id when none exist.
func New(streamer parley.Streamer, opts ...Option) *Machine {
	m := &Machine{
		streamer:      streamer,
		conversations: map[string]parley.Conversation{},
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	if m.activeID == "" {
		for id := range m.conversations {
			m.activeID = id
			break
		}
	}
	if m.activeID == "" {
		m.activeID = m.newID()
	}
	return m
}

// Send appends the user message and an empty assistant placeholder in a
// single update, marks the conversation streaming, and starts a session.
// No-op when text trims to empty or a generation is already in flight.
// The conversation is created lazily on the first send under its id; its
// title derives from that first message and never changes afterward.
func (m *Machine) Send(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	m.mu.Lock()
	if m.streaming {
		m.mu.Unlock()
		return
	}

	now := m.now()
	convID := m.activeID
	c, ok := m.conversations[convID]
	if !ok {
		c = parley.Conversation{ID: convID, CreatedAt: now}
	}
	if len(c.Messages) == 0 {
		c.Title = parley.DeriveTitle(text)
	}

	msgs := make([]parley.Message, 0, len(c.Messages)+2)
	msgs = append(msgs, c.Messages...)
	msgs = append(msgs,
		parley.Message{ID: m.newID(), Role: parley.RoleUser, Content: text, Timestamp: now},
		parley.Message{ID: m.newID(), Role: parley.RoleAssistant, Timestamp: now},
	)
	m.conversations[convID] = c.WithMessages(msgs, now)

	m.streaming = true
	m.metadata = nil
	m.turn++
	turn := m.turn
	m.persistLocked()
	m.mu.Unlock()

	m.notifyChanged()
	m.startStream(convID, turn, text)
}

// Stop cancels the active session and immediately forces idle, without
// waiting for the transport to settle. The cancelled session emits no
// further callbacks.
func (m *Machine) Stop() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.streaming = false
	m.turn++
	m.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
	m.notifyChanged()
}

// Regenerate drops the last assistant answer (complete or not), appends a
// fresh placeholder, and replays the most recent user message. No-op while
// streaming, when the conversation has fewer than two messages, or when no
// prior user message exists.
func (m *Machine) Regenerate() {
	m.mu.Lock()
	if m.streaming {
		m.mu.Unlock()
		return
	}
	c, ok := m.conversations[m.activeID]
	if !ok || len(c.Messages) < 2 {
		m.mu.Unlock()
		return
	}
	lastUser, ok := c.LastUserMessage()
	if !ok {
		m.mu.Unlock()
		return
	}

	now := m.now()
	msgs := make([]parley.Message, 0, len(c.Messages))
	msgs = append(msgs, c.Messages[:len(c.Messages)-1]...)
	msgs = append(msgs, parley.Message{ID: m.newID(), Role: parley.RoleAssistant, Timestamp: now})
	m.conversations[c.ID] = c.WithMessages(msgs, now)

	m.streaming = true
	m.metadata = nil
	m.turn++
	turn := m.turn
	convID := c.ID
	m.persistLocked()
	m.mu.Unlock()

	m.notifyChanged()
	m.startStream(convID, turn, lastUser.Content)
}

// Switch activates the given conversation id and clears the metadata
// snapshot. It does not cancel an in-flight session: tokens keep
// accumulating into the conversation the session was bound to at start.
func (m *Machine) Switch(id string) {
	m.mu.Lock()
	m.activeID = id
	m.metadata = nil
	m.mu.Unlock()
	m.notifyChanged()
}

// NewConversation activates a fresh conversation id and returns it. The
// conversation itself is created lazily on the first send.
func (m *Machine) NewConversation() string {
	id := m.newID()
	m.Switch(id)
	return id
}

// Delete removes the conversation from the store. When it was active, an
// arbitrary remaining conversation becomes active, or a fresh one when none
// remain. The remote endpoint is notified best-effort; failure is swallowed
// and never blocks local removal.
func (m *Machine) Delete(id string) {
	if m.remote != nil {
		go func() {
			_ = m.remote.DeleteConversation(context.Background(), id)
		}()
	}

	m.mu.Lock()
	delete(m.conversations, id)
	if id == m.activeID {
		next := ""
		for k := range m.conversations {
			next = k
			break
		}
		if next == "" {
			next = m.newID()
		}
		m.activeID = next
	}
	m.persistLocked()
	m.mu.Unlock()
	m.notifyChanged()
}

// Active returns the active conversation, or an empty placeholder when it
// has not been created yet.
func (m *Machine) Active() parley.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[m.activeID]; ok {
		return c
	}
	now := m.now()
	return parley.Conversation{
		ID:        m.activeID,
		Title:     "New conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ActiveID returns the active conversation id.
func (m *Machine) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Streaming reports whether a generation is in flight.
func (m *Machine) Streaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

// Metadata returns the metadata snapshot for the current or most recent
// turn, and false when none has arrived since the last reset.
func (m *Machine) Metadata() (parley.GenerationMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metadata == nil {
		return parley.GenerationMetadata{}, false
	}
	return *m.metadata, true
}

// Summaries returns the conversation list projection, ordered by UpdatedAt
// descending. Recomputed on every call.
func (m *Machine) Summaries() []parley.ConversationSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return parley.Summaries(m.conversations)
}

// Conversations returns a shallow copy of the conversation map.
func (m *Machine) Conversations() map[string]parley.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]parley.Conversation, len(m.conversations))
	for id, c := range m.conversations {
		result[id] = c
	}
	return result
}

// startStream starts a session bound to convID and turn. When the turn was
// superseded before the handle could be recorded (Stop racing a fresh
// send), the stale session is cancelled instead.
func (m *Machine) startStream(convID string, turn uint64, prompt string) {
	h := m.streamer.Stream(context.Background(), convID, prompt, parley.Callbacks{
		OnToken:    func(text string) { m.applyToken(convID, turn, text) },
		OnMetadata: func(md parley.GenerationMetadata) { m.applyMetadata(turn, md) },
		OnError:    func(msg string) { m.applyError(convID, turn, msg) },
		OnDone:     func() { m.applyDone(turn) },
	})

	m.mu.Lock()
	if m.turn == turn && m.streaming {
		m.handle = h
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// applyToken appends the token to the trailing message, only when that
// message is still the assistant placeholder for this turn's conversation.
func (m *Machine) applyToken(convID string, turn uint64, text string) {
	m.mu.Lock()
	if turn != m.turn {
		m.mu.Unlock()
		return
	}
	c, ok := m.conversations[convID]
	if !ok {
		m.mu.Unlock()
		return
	}
	last, ok := c.LastMessage()
	if !ok || last.Role != parley.RoleAssistant {
		m.mu.Unlock()
		return
	}

	msgs := append([]parley.Message{}, c.Messages...)
	msgs[len(msgs)-1] = last.AppendContent(text)
	m.conversations[convID] = c.WithMessages(msgs, m.now())
	m.persistLocked()
	m.mu.Unlock()
	m.notifyChanged()
}

// applyMetadata replaces the metadata snapshot wholesale.
func (m *Machine) applyMetadata(turn uint64, md parley.GenerationMetadata) {
	m.mu.Lock()
	if turn != m.turn {
		m.mu.Unlock()
		return
	}
	m.metadata = &md
	m.mu.Unlock()
	m.notifyChanged()
}

// applyError annotates the empty placeholder with the error text. Partial
// content already streamed is never overwritten. The turn goes idle either
// way.
func (m *Machine) applyError(convID string, turn uint64, message string) {
	m.mu.Lock()
	if turn != m.turn {
		m.mu.Unlock()
		return
	}
	if c, ok := m.conversations[convID]; ok {
		if last, ok := c.LastMessage(); ok && last.Role == parley.RoleAssistant && last.Content == "" {
			msgs := append([]parley.Message{}, c.Messages...)
			msgs[len(msgs)-1] = last.WithContent("Error: " + message)
			c.Messages = msgs
			m.conversations[convID] = c
		}
		m.persistLocked()
	}
	m.streaming = false
	m.handle = nil
	m.mu.Unlock()
	m.notifyChanged()
}

// applyDone moves the turn to idle; content and metadata stay as
// accumulated.
func (m *Machine) applyDone(turn uint64) {
	m.mu.Lock()
	if turn != m.turn {
		m.mu.Unlock()
		return
	}
	m.streaming = false
	m.handle = nil
	m.mu.Unlock()
	m.notifyChanged()
}

// persistLocked rewrites the store. Persistence failures are ignored; the
// in-memory map stays authoritative.
func (m *Machine) persistLocked() {
	if m.store != nil {
		_ = m.store.Save(m.conversations)
	}
}

func (m *Machine) notifyChanged() {
	if m.onChange != nil {
		m.onChange()
	}
}
