package parley_test

import (
	"strings"
	"testing"
	"time"

	"github.com/parleychat/parley"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "short message unchanged", text: "hello", want: "hello"},
		{name: "exactly fifty runes unchanged", text: strings.Repeat("a", 50), want: strings.Repeat("a", 50)},
		{name: "long message truncated with ellipsis", text: strings.Repeat("a", 80), want: strings.Repeat("a", 50) + "..."},
		{name: "truncation counts runes not bytes", text: strings.Repeat("é", 60), want: strings.Repeat("é", 50) + "..."},
		{name: "empty", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parley.DeriveTitle(tt.text))
		})
	}
}

func TestConversation_LastUserMessage(t *testing.T) {
	t.Parallel()

	c := parley.Conversation{
		Messages: []parley.Message{
			{ID: "1", Role: parley.RoleUser, Content: "first"},
			{ID: "2", Role: parley.RoleAssistant, Content: "reply"},
			{ID: "3", Role: parley.RoleUser, Content: "second"},
			{ID: "4", Role: parley.RoleAssistant, Content: "partial"},
		},
	}

	msg, ok := c.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", msg.Content)
}

func TestConversation_LastUserMessage_NoneFound(t *testing.T) {
	t.Parallel()

	c := parley.Conversation{
		Messages: []parley.Message{
			{ID: "1", Role: parley.RoleAssistant, Content: "orphan"},
		},
	}

	_, ok := c.LastUserMessage()
	assert.False(t, ok)
}

func TestSummaries_OrderedByUpdatedAtDescending(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	conversations := map[string]parley.Conversation{
		"a": {ID: "a", Title: "oldest", UpdatedAt: t1},
		"b": {ID: "b", Title: "newest", UpdatedAt: t3},
		"c": {ID: "c", Title: "middle", UpdatedAt: t2},
	}

	summaries := parley.Summaries(conversations)
	require.Len(t, summaries, 3)
	assert.Equal(t, "b", summaries[0].ID)
	assert.Equal(t, "c", summaries[1].ID)
	assert.Equal(t, "a", summaries[2].ID)
}

func TestConversation_Summary(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := parley.Conversation{
		ID:        "conv-1",
		Title:     "Hello",
		Messages:  []parley.Message{{Role: parley.RoleUser}, {Role: parley.RoleAssistant}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s := c.Summary()
	assert.Equal(t, "conv-1", s.ID)
	assert.Equal(t, "Hello", s.Title)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestMessage_AppendContent_ReturnsCopy(t *testing.T) {
	t.Parallel()

	orig := parley.Message{ID: "m1", Role: parley.RoleAssistant, Content: "Hel"}
	grown := orig.AppendContent("lo")

	assert.Equal(t, "Hel", orig.Content, "original message must not be mutated")
	assert.Equal(t, "Hello", grown.Content)
}
