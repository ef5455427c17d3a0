// Command parleyd serves the streaming chat API over HTTP.
//
// Usage:
//
//	OPENAI_API_KEY=sk-... parleyd -model gpt-4o-mini [flags]
//	GEMINI_API_KEY=gk-... parleyd -model gemini-2.0-flash [flags]
//
// Flags:
//
//	-addr string       Listen address (default :8000)
//	-provider string   Provider: openai, gemini (auto-detected from env vars if omitted)
//	-model string      Model ID (required)
//	-base-url string   OpenAI-compatible API base URL (e.g. a local llama.cpp server)
//	-max-history int   Messages of history per generation (default 20)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/parleychat/parley/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parleyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr         = flag.String("addr", ":8000", "Listen address")
		providerFlag = flag.String("provider", "", "Provider: openai, gemini (auto-detected from env vars if omitted)")
		model        = flag.String("model", "", "Model ID (required)")
		baseURL      = flag.String("base-url", "", "OpenAI-compatible API base URL")
		maxHistory   = flag.Int("max-history", 20, "Messages of history per generation")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	gen, err := resolveGenerator(ctx, *providerFlag, *baseURL, *model,
		os.Getenv("OPENAI_API_KEY"), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		return err
	}

	s := server.New(gen,
		server.WithLogger(logger),
		server.WithMaxHistory(*maxHistory),
	)
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr), zap.String("model", gen.ModelID()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// resolveGenerator picks the backend from the -provider flag, falling back
// to whichever API key env var is set. A base URL forces the OpenAI path
// since local OpenAI-compatible servers usually need no key.
func resolveGenerator(ctx context.Context, provider, baseURL, model, openaiKey, geminiKey string) (server.Generator, error) {
	if provider == "" {
		switch {
		case baseURL != "" || openaiKey != "":
			provider = "openai"
		case geminiKey != "":
			provider = "gemini"
		default:
			return nil, errors.New("no provider configured: set OPENAI_API_KEY or GEMINI_API_KEY, or pass -provider")
		}
	}
	switch provider {
	case "openai":
		return server.NewOpenAIGenerator(openaiKey, baseURL, model)
	case "gemini":
		return server.NewGeminiGenerator(ctx, geminiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
