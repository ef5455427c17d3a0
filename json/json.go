// Package json persists the conversation store as a single JSON file. The
// state machine owns the in-memory map; this package only serializes and
// deserializes it, wholesale, never mutating it.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parleychat/parley"
)

// envelope is the v1 wire format for the persisted store.
type envelope struct {
	Version       int                        `json:"version"`
	Conversations map[string]conversationDTO `json:"conversations"`
}

// conversationDTO is the JSON representation of a Conversation.
type conversationDTO struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Messages  []messageDTO `json:"messages"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalStore serializes a conversation map to JSON in v1 envelope format.
func MarshalStore(conversations map[string]parley.Conversation) ([]byte, error) {
	env := envelope{
		Version:       1,
		Conversations: make(map[string]conversationDTO, len(conversations)),
	}
	for id, c := range conversations {
		env.Conversations[id] = marshalConversation(c)
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalStore deserializes a conversation map from JSON in v1 envelope format.
func UnmarshalStore(data []byte) (map[string]parley.Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	result := make(map[string]parley.Conversation, len(env.Conversations))
	for id, dto := range env.Conversations {
		result[id] = unmarshalConversation(dto)
	}
	return result, nil
}

func marshalConversation(c parley.Conversation) conversationDTO {
	msgs := make([]messageDTO, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = messageDTO{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return conversationDTO{
		ID:        c.ID,
		Title:     c.Title,
		Messages:  msgs,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func unmarshalConversation(dto conversationDTO) parley.Conversation {
	msgs := make([]parley.Message, len(dto.Messages))
	for i, m := range dto.Messages {
		msgs[i] = parley.Message{
			ID:        m.ID,
			Role:      parley.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return parley.Conversation{
		ID:        dto.ID,
		Title:     dto.Title,
		Messages:  msgs,
		CreatedAt: dto.CreatedAt,
		UpdatedAt: dto.UpdatedAt,
	}
}

// Store reads and writes the conversation map at a fixed path.
type Store struct {
	path string
}

// NewStore creates a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the whole store. A missing file is an empty store. A file that
// fails to parse also yields an empty store, with the error returned so the
// caller can decide whether to warn.
func (s *Store) Load() (map[string]parley.Conversation, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]parley.Conversation{}, nil
	}
	if err != nil {
		return map[string]parley.Conversation{}, fmt.Errorf("read store: %w", err)
	}
	m, err := UnmarshalStore(data)
	if err != nil {
		return map[string]parley.Conversation{}, err
	}
	return m, nil
}

// Save rewrites the whole store, creating parent directories as needed.
// The write is atomic: temp file then rename.
func (s *Store) Save(conversations map[string]parley.Conversation) error {
	data, err := MarshalStore(conversations)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
