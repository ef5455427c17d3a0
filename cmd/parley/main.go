// Command parley is a terminal client for a token-streaming chat server.
//
// Usage:
//
//	parley [flags]
//
// Flags:
//
//	-config string  Path to config file (default: ~/.parley/config.toml)
//	-server string  Server base URL (overrides config)
//	-store string   Path to the conversation store (overrides config)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/parleychat/parley/bubbletea"
	"github.com/parleychat/parley/chat"
	"github.com/parleychat/parley/client"
	"github.com/parleychat/parley/config"
	parleyjson "github.com/parleychat/parley/json"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to config file")
		serverURL  = flag.String("server", "", "Server base URL (overrides config)")
		storePath  = flag.String("store", "", "Path to the conversation store (overrides config)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	store := parleyjson.NewStore(cfg.Store.Path)
	conversations, err := store.Load()
	if err != nil {
		// Load falls back to an empty map; warn and keep going rather than
		// refuse to start over an unreadable history file.
		fmt.Fprintf(os.Stderr, "parley: ignoring conversation store: %v\n", err)
	}

	c := client.New(cfg.Server.BaseURL)
	changes, notify := bubbletea.NewChangeSignal()
	machine := chat.New(c,
		chat.WithStore(store),
		chat.WithRemote(c),
		chat.WithConversations(conversations),
		chat.WithOnChange(notify),
	)

	model := bubbletea.New(machine, c.Health, cfg.Theme(), changes)
	if err := bubbletea.Run(ctx, model); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}
