// Package mock provides test doubles for parley interfaces using function fields.
package mock

import (
	"context"

	"github.com/parleychat/parley"
)

// Interface compliance checks.
var (
	_ parley.Streamer = (*Streamer)(nil)
	_ parley.Handle   = (*Handle)(nil)
)

// Streamer is a test double for parley.Streamer.
// Set StreamFn before calling Stream.
type Streamer struct {
	StreamFn func(ctx context.Context, conversationID, message string, cb parley.Callbacks) parley.Handle
}

// Stream delegates to StreamFn.
func (s *Streamer) Stream(ctx context.Context, conversationID, message string, cb parley.Callbacks) parley.Handle {
	return s.StreamFn(ctx, conversationID, message, cb)
}

// Handle is a test double for parley.Handle.
// CancelFn may be left nil when cancellation is not expected.
type Handle struct {
	CancelFn  func()
	Cancelled bool
}

// Cancel records the call and delegates to CancelFn when set.
func (h *Handle) Cancel() {
	h.Cancelled = true
	if h.CancelFn != nil {
		h.CancelFn()
	}
}
