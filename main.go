// obelisk - terminal client for the Obelisk streaming-chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/obelisk-tui/internal/api"
	"github.com/jeranaias/obelisk-tui/internal/cli"
	"github.com/jeranaias/obelisk-tui/internal/config"
	"github.com/jeranaias/obelisk-tui/internal/state"
	"github.com/jeranaias/obelisk-tui/internal/ui/chat"
	"github.com/jeranaias/obelisk-tui/internal/ui/styles"
)

func main() {
	command, args := cli.Parse()

	setupLogging(args.Verbose)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Continuing with defaults.")
		cfg = config.Default()
	}
	config.SetGlobal(cfg)

	switch command {
	case cli.CmdTUI:
		if err := runTUI(cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case cli.CmdChat:
		if err := cli.HandleChatCommand(cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case cli.CmdSessions:
		if err := cli.HandleSessionsCommand(cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case cli.CmdVersion:
		cli.PrintVersion()

	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

// setupLogging sends log output to a file under the config dir. The TUI
// owns the terminal, so stray log lines corrupt its output; --verbose
// additionally copies logs to stderr for the plain commands.
func setupLogging(verbose bool) {
	var writers []io.Writer

	if err := config.EnsureConfigDir(); err == nil {
		if dir, err := config.ConfigDir(); err == nil {
			logPath := filepath.Join(dir, "obelisk.log")
			if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
				writers = append(writers, f)
			}
		}
	}
	if verbose {
		writers = append(writers, os.Stderr)
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(io.MultiWriter(writers...))
}

// runTUI wires the full-screen interface and blocks until it exits.
func runTUI(cfg *config.Config, args cli.Args) error {
	store := newStore()
	if err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load saved state: %v\n", err)
	}
	applyOverrides(store, args)

	baseURL := cfg.Backend.BaseURL
	if args.Backend != "" {
		baseURL = args.Backend
	}
	client := api.NewClient(baseURL).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.Backend.RequestsPerSecond)

	runner := chat.NewStreamRunner(client)
	model := chat.New(styles.NewTheme(), cfg, client, runner, store)

	p := tea.NewProgram(model, tea.WithAltScreen())
	runner.SetProgram(p)

	// Config edits on disk reach the running TUI without a restart
	watcher, err := config.NewWatcher(500*time.Millisecond, func(reloaded *config.Config) {
		config.SetGlobal(reloaded)
		p.Send(chat.ConfigReloadedMsg{Config: reloaded})
	})
	if err == nil {
		if werr := watcher.Watch(); werr == nil {
			defer watcher.Close()
		}
	}

	_, err = p.Run()
	return err
}

// newStore builds the persistent state store at the default location.
func newStore() *state.Store {
	dir, err := state.DefaultDir()
	if err != nil {
		dir = "."
	}
	return state.NewStore(dir)
}

// applyOverrides persists the --session and --model flags so the TUI
// resumes the requested session with the requested model.
func applyOverrides(store *state.Store, args cli.Args) {
	if args.SessionID != "" {
		if err := store.SetCurrentSession(args.SessionID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save session override: %v\n", err)
		}
	}
	if args.Model != "" {
		model := args.Model
		if err := store.UpdateAIConfig(state.AIConfigPatch{Model: &model}); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save model override: %v\n", err)
		}
	}
}
