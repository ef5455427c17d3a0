package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/parleychat/parley"
	"github.com/parleychat/parley/sse"
)

// Interface compliance check.
var _ parley.Handle = (*Session)(nil)

// Session is one in-flight streaming request/response cycle, cancellable as
// a unit.
type Session struct {
	cancel  context.CancelFunc
	done    chan struct{}
	outcome parley.Outcome // written before done closes
}

// Cancel aborts the in-flight request. An aborted session invokes neither
// OnError nor OnDone: intentional cancellation is not a failure, and the
// caller owns the resulting state transition.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until the session settles and returns its outcome.
func (s *Session) Wait() parley.Outcome {
	<-s.done
	return s.outcome
}

// Done returns a channel closed when the session settles.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// stream runs the request/read/classify loop. It returns the terminal
// outcome; all caller-visible effects go through cb.
func (c *Client) stream(ctx context.Context, conversationID, message string, cb parley.Callbacks) parley.Outcome {
	body, err := json.Marshal(chatRequest{ConversationID: conversationID, Message: message})
	if err != nil {
		cb.Error(err.Error())
		return parley.OutcomeFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		cb.Error(err.Error())
		return parley.OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return parley.OutcomeCancelled
		}
		cb.Error(err.Error())
		return parley.OutcomeFailed
	}
	if resp.Body == nil {
		cb.Error("No response body")
		return parley.OutcomeFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cb.Error(fmt.Sprintf("Server error: %d", resp.StatusCode))
		return parley.OutcomeFailed
	}

	// One-shot latch: both an explicit done event and end-of-stream route
	// through here, and the second trigger is suppressed.
	fired := false
	emitDone := func() {
		if !fired {
			fired = true
			cb.Done()
		}
	}

	dec := sse.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(string(buf[:n])) {
				if ctx.Err() != nil {
					return parley.OutcomeCancelled
				}
				dispatch(sse.Classify(frame), cb, emitDone)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if ctx.Err() != nil {
				return parley.OutcomeCancelled
			}
			cb.Error(readErr.Error())
			return parley.OutcomeFailed
		}
	}

	if ctx.Err() != nil {
		return parley.OutcomeCancelled
	}

	if frame, ok := dec.Flush(); ok {
		dispatch(sse.Classify(frame), cb, emitDone)
	}
	emitDone()
	return parley.OutcomeCompleted
}

func dispatch(evt parley.Event, cb parley.Callbacks, emitDone func()) {
	switch e := evt.(type) {
	case parley.EventToken:
		cb.Token(e.Text)
	case parley.EventMetadata:
		cb.Metadata(parley.GenerationMetadata{
			TokensGenerated: e.TokensGenerated,
			ElapsedSeconds:  e.ElapsedSeconds,
		})
	case parley.EventError:
		cb.Error(e.Message)
	case parley.EventDone:
		emitDone()
	case nil:
		// Frame classified to nothing (malformed metadata, unknown event).
	}
}
