// Package server implements the parley generation backend: an SSE chat
// endpoint backed by a pluggable token generator, with in-memory
// conversation history.
package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/parleychat/parley"
	"go.uber.org/zap"
)

const (
	systemPrompt = "You are a helpful, friendly AI assistant. " +
		"Answer the user's questions directly and accurately. " +
		"If you don't know something, say so honestly. " +
		"Keep responses concise unless the user asks for detail."

	maxMessageLen     = 2000
	defaultMaxHistory = 20
)

// Server owns the HTTP surface and the server-side conversation history.
// History is in-memory only and lost on restart; the client keeps its own
// durable copy.
type Server struct {
	logger     *zap.Logger
	gen        Generator
	maxHistory int
	now        func() time.Time

	mu            sync.Mutex
	conversations map[string]parley.Conversation
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides the time source. Useful for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithMaxHistory caps the number of messages sent to the generator. The
// system prompt does not count against the cap.
func WithMaxHistory(n int) Option {
	return func(s *Server) { s.maxHistory = n }
}

// New creates a Server around gen.
func New(gen Generator, opts ...Option) *Server {
	s := &Server{
		logger:        zap.NewNop(),
		gen:           gen,
		maxHistory:    defaultMaxHistory,
		now:           time.Now,
		conversations: map[string]parley.Conversation{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router returns the HTTP handler with all routes and middleware mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/chat", s.handleChat)
	r.Get("/conversations", s.handleListConversations)
	r.Delete("/conversations/{id}", s.handleDeleteConversation)
	r.Get("/health", s.handleHealth)
	return r
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "conversation_id and message are required")
		return
	}
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message too long")
		return
	}
	if !s.gen.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Model is still loading")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	history := s.appendUserMessage(req.ConversationID, req.Message)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	start := s.now()
	tokens := 0
	var assistant strings.Builder

	err := s.gen.Generate(ctx, history, func(token string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tokens++
		assistant.WriteString(token)
		writeEvent(w, flusher, "token", token)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// Client went away; nothing left to tell it.
			return
		}
		s.logger.Error("generation failed",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err))
		writeEvent(w, flusher, "error", "Generation failed. Please try again.")
		return
	}

	elapsed := s.now().Sub(start).Seconds()
	md, _ := json.Marshal(map[string]any{
		"tokens_generated": tokens,
		"elapsed_s":        math.Round(elapsed*100) / 100,
	})
	writeEvent(w, flusher, "metadata", string(md))

	if text := assistant.String(); text != "" {
		s.appendAssistantMessage(req.ConversationID, text)
	}
	writeEvent(w, flusher, "done", "")
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	summaries := parley.Summaries(s.conversations)
	s.mu.Unlock()

	out := make([]summaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, summaryResponse{
			ID:           sum.ID,
			Title:        sum.Title,
			CreatedAt:    sum.CreatedAt,
			UpdatedAt:    sum.UpdatedAt,
			MessageCount: sum.MessageCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.conversations[id]
	delete(s.conversations, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	s.logger.Info("deleted conversation", zap.String("conversation_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Conversation deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "loading"
	if s.gen.Ready() {
		status = "ok"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		ModelID:     s.gen.ModelID(),
		ModelLoaded: s.gen.Ready(),
	})
}

// appendUserMessage records the user message, deriving the title from the
// first message of a new conversation, and returns the generation input
// with the system prompt prepended and older turns truncated away.
func (s *Server) appendUserMessage(conversationID, text string) []Turn {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		c = parley.Conversation{ID: conversationID, Title: "New conversation", CreatedAt: now}
	}
	c.Messages = append(c.Messages, parley.Message{Role: parley.RoleUser, Content: text, Timestamp: now})
	c.UpdatedAt = now
	if len(c.Messages) == 1 {
		c.Title = parley.DeriveTitle(strings.TrimSpace(text))
	}
	s.conversations[conversationID] = c

	msgs := c.Messages
	if len(msgs) > s.maxHistory {
		msgs = msgs[len(msgs)-s.maxHistory:]
	}
	history := make([]Turn, 0, len(msgs)+1)
	history = append(history, Turn{Role: "system", Content: systemPrompt})
	for _, m := range msgs {
		history = append(history, Turn{Role: string(m.Role), Content: m.Content})
	}
	return history
}

func (s *Server) appendAssistantMessage(conversationID, text string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	c.Messages = append(c.Messages, parley.Message{Role: parley.RoleAssistant, Content: text, Timestamp: now})
	c.UpdatedAt = now
	s.conversations[conversationID] = c
}

type summaryResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelID     string `json:"model_id"`
	ModelLoaded bool   `json:"model_loaded"`
}

// writeEvent writes one SSE frame. Multi-line payloads become one data
// field per line, per the SSE wire format.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// logRequests emits one structured log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
