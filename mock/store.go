package mock

import (
	"context"

	"github.com/parleychat/parley"
	"github.com/parleychat/parley/chat"
)

// Interface compliance checks.
var (
	_ chat.Store     = (*Store)(nil)
	_ parley.Deleter = (*Deleter)(nil)
)

// Store is a test double for chat.Store.
// Set SaveFn before calling Save.
type Store struct {
	SaveFn func(conversations map[string]parley.Conversation) error
}

// Save delegates to SaveFn.
func (s *Store) Save(conversations map[string]parley.Conversation) error {
	return s.SaveFn(conversations)
}

// Deleter is a test double for parley.Deleter.
// Set DeleteConversationFn before calling DeleteConversation.
type Deleter struct {
	DeleteConversationFn func(ctx context.Context, id string) error
}

// DeleteConversation delegates to DeleteConversationFn.
func (d *Deleter) DeleteConversation(ctx context.Context, id string) error {
	return d.DeleteConversationFn(ctx, id)
}
