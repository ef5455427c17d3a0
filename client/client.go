// Package client implements the HTTP client for the streaming chat server:
// one stream session per generation turn, plus the conversation-delete and
// health endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/parleychat/parley"
)

const (
	chatPath          = "/chat"
	conversationsPath = "/conversations"
	healthPath        = "/health"
)

// Interface compliance checks.
var (
	_ parley.Streamer = (*Client)(nil)
	_ parley.Deleter  = (*Client)(nil)
)

// Client talks to a chat server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new [Client] for the given base URL and options.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// chatRequest is the POST /chat body.
type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// healthResponse is the GET /health body.
type healthResponse struct {
	ModelLoaded bool `json:"model_loaded"`
}

// Stream starts one generation turn. It issues exactly one request and
// returns immediately; the response body is consumed on a session goroutine
// that delivers callbacks in classification order. Cancel the returned
// session to abort silently.
func (c *Client) Stream(ctx context.Context, conversationID, message string, cb parley.Callbacks) parley.Handle {
	return c.StartSession(ctx, conversationID, message, cb)
}

// StartSession is Stream returning the concrete [*Session], which exposes
// the terminal outcome for callers that need it.
func (c *Client) StartSession(ctx context.Context, conversationID, message string, cb parley.Callbacks) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.outcome = c.stream(ctx, conversationID, message, cb)
	}()
	return s
}

// DeleteConversation notifies the server that a conversation was removed.
// Any non-2xx status is an error; callers typically swallow it.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+conversationsPath+"/"+id, nil)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("client: delete conversation %s: HTTP %d", id, resp.StatusCode)
	}
	return nil
}

// Health reports whether the server's model is loaded. A transport failure
// or non-2xx status is returned as an error; callers polling readiness
// usually treat it as "not ready".
func (c *Client) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false, fmt.Errorf("client: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("client: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("client: health: HTTP %d", resp.StatusCode)
	}
	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return false, fmt.Errorf("client: health: %w", err)
	}
	return hr.ModelLoaded, nil
}
