// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-oriented chat REPL.
//
// USABILITY: Ctrl+C cancels the in-flight response, Ctrl+D exits cleanly
//
// The REPL streams assistant tokens to stdout as they arrive. Markdown
// rendering happens in the /history transcript view, not during streaming,
// so partial code fences never hit the renderer.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/obelisk-tui/internal/api"
	"github.com/jeranaias/obelisk-tui/internal/config"
	"github.com/jeranaias/obelisk-tui/internal/format"
	"github.com/jeranaias/obelisk-tui/internal/model"
	"github.com/jeranaias/obelisk-tui/internal/state"
)

// =============================================================================
// LINE READER
// =============================================================================

// ChatCLI wraps liner with persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line reader with history at the given path.
// An empty path puts the history file in the obelisk config directory.
func NewChatCLI(historyFile string) (*ChatCLI, error) {
	if historyFile == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		historyFile = filepath.Join(dir, "chat_history")
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	return &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}, nil
}

// LoadHistory loads input history from disk. Missing file is not an error.
func (c *ChatCLI) LoadHistory() {
	f, err := os.Open(c.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.ReadHistory(f)
}

// ReadInput reads one line and appends non-empty input to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history to disk with restrictive permissions.
func (c *ChatCLI) SaveHistory() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(c.historyFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	defer f.Close()
	_, err = c.line.WriteHistory(f)
	return err
}

// Close releases the terminal state.
func (c *ChatCLI) Close() error {
	return c.line.Close()
}

// =============================================================================
// CHAT SESSION STATE
// =============================================================================

// ChatSession holds the REPL state for one run.
type ChatSession struct {
	Client    *api.Client
	Store     *state.Store
	Formatter *format.Formatter
	Config    *config.Config

	SessionID string
	Markdown  bool

	Queries   int
	StartTime time.Time
}

// =============================================================================
// COMMAND ENTRY
// =============================================================================

// HandleChatCommand runs the line-oriented chat REPL.
func HandleChatCommand(cfg *config.Config, args Args) error {
	client := newBackendClient(cfg, args)

	store := newStateStore()
	if err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "%s Could not load saved state: %v\n",
			warningStyle.Render("[Warning]"), err)
	}

	if args.Model != "" {
		override := args.Model
		if err := store.UpdateAIConfig(state.AIConfigPatch{Model: &override}); err != nil {
			fmt.Fprintf(os.Stderr, "%s Could not save model override: %v\n",
				warningStyle.Render("[Warning]"), err)
		}
	}

	session := &ChatSession{
		Client:    client,
		Store:     store,
		Formatter: format.New(format.WithMarkdown(cfg.UI.Markdown), format.WithWidth(cfg.UI.WrapWidth)),
		Config:    cfg,
		Markdown:  cfg.UI.Markdown,
		StartTime: time.Now(),
	}

	if err := resolveSession(session, args.SessionID); err != nil {
		return err
	}

	cli, err := NewChatCLI(cfg.Chat.HistoryFile)
	if err != nil {
		return err
	}
	defer cli.Close()
	cli.LoadHistory()

	printWelcome(session)

	for {
		input, err := cli.ReadInput(promptStyle.Render("> "))
		if err != nil {
			// Ctrl+C at the prompt and Ctrl+D both end the REPL
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			return fmt.Errorf("input error: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		// Bare exit words work like /quit
		if input == "exit" || input == "quit" {
			break
		}

		if strings.HasPrefix(input, "/") {
			cont, err := handleSlashCommand(session, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !cont {
				break
			}
			continue
		}

		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}

	if err := cli.SaveHistory(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", warningStyle.Render("[Warning]"), err)
	}

	printExitSummary(session)
	return nil
}

// newBackendClient builds the API client from config plus CLI overrides.
func newBackendClient(cfg *config.Config, args Args) *api.Client {
	baseURL := cfg.Backend.BaseURL
	if args.Backend != "" {
		baseURL = args.Backend
	}
	return api.NewClient(baseURL).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.Backend.RequestsPerSecond)
}

// newStateStore builds the persistent state store at the default location.
func newStateStore() *state.Store {
	dir, err := state.DefaultDir()
	if err != nil {
		dir = "."
	}
	return state.NewStore(dir)
}

// resolveSession picks the session to chat in: an explicit --session flag,
// the last-used session from saved state, or a freshly created one.
func resolveSession(session *ChatSession, explicit string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	candidate := explicit
	if candidate == "" {
		candidate = session.Store.CurrentSessionID()
	}

	if candidate != "" {
		doc, err := session.Client.GetSession(ctx, candidate)
		if err == nil {
			session.SessionID = doc.SessionIdentifier()
			return rememberSession(session)
		}
		if !errors.Is(err, api.ErrSessionNotFound) {
			return fmt.Errorf("failed to load session %s: %w", candidate, err)
		}
		// Stale saved ID after a backend reset: fall through and create
	}

	doc, err := session.Client.CreateSession(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.SessionID = doc.SessionIdentifier()
	return rememberSession(session)
}

// rememberSession persists the current session ID for the next run.
func rememberSession(session *ChatSession) error {
	if err := session.Store.SetCurrentSession(session.SessionID); err != nil {
		fmt.Fprintf(os.Stderr, "%s Could not save session state: %v\n",
			warningStyle.Render("[Warning]"), err)
	}
	return nil
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage streams one exchange. Ctrl+C during streaming cancels
// the request; the partial response stays on screen.
func processMessage(session *ChatSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, warningStyle.Render("[Cancelled]"))
			cancel()
		case <-ctx.Done():
		}
	}()

	req := api.ChatRequest{
		SessionID:      session.SessionID,
		Message:        input,
		ConfigOverride: session.Store.ConfigOverride(),
	}

	sink := &printSink{label: assistantLabelStyle.Render("assistant")}
	final, err := session.Client.ChatStream(ctx, req, sink)
	sink.finish()

	if err != nil {
		var streamErr *api.StreamError
		if errors.As(err, &streamErr) {
			// The partial already streamed to the terminal; report the break
			return fmt.Errorf("stream interrupted: %w", streamErr.Err)
		}
		return err
	}

	if final != nil && !final.IsEmpty() {
		session.Queries++
	}
	return nil
}

// printSink streams fragments to stdout as they arrive. The backend sinks
// report full accumulated content, so each callback prints only the new
// suffix past what was already written.
type printSink struct {
	label   string
	sentLen int
	started bool
}

func (s *printSink) MessageStarted(m *model.Message) {
	if !s.started {
		fmt.Printf("\n%s\n", s.label)
		s.started = true
	}
}

func (s *printSink) MessageUpdated(m *model.Message) {
	content := m.DisplayContent()
	if len(content) > s.sentLen {
		fmt.Print(content[s.sentLen:])
		s.sentLen = len(content)
	}
}

func (s *printSink) MessageCompleted(m *model.Message) {
	s.MessageUpdated(m)
}

// finish terminates the output line when anything was printed.
func (s *printSink) finish() {
	if s.started {
		fmt.Print("\n\n")
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand dispatches a /command. The first return value is
// false when the REPL should exit.
func handleSlashCommand(session *ChatSession, input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h":
		printREPLHelp()
		return true, nil

	case "/history":
		return true, printHistory(session)

	case "/sessions":
		page := 0
		if len(args) > 0 {
			page, _ = strconv.Atoi(args[0])
		}
		return true, printSessionList(session, page)

	case "/session":
		if len(args) == 0 {
			fmt.Printf("%s Current session: %s\n",
				infoStyle.Render("[Session]"),
				commandStyle.Render(session.SessionID))
			return true, nil
		}
		return true, switchSession(session, args[0])

	case "/new":
		return true, newSession(session, strings.Join(args, " "))

	case "/model":
		return true, handleModelCommand(session, args)

	case "/markdown":
		if len(args) == 0 {
			fmt.Printf("%s Markdown rendering: %v\n",
				infoStyle.Render("[Markdown]"), session.Markdown)
			return true, nil
		}
		on, err := ParseBoolString(args[0])
		if err != nil {
			return true, err
		}
		session.Markdown = on
		fmt.Printf("%s Markdown rendering %s\n",
			commandStyle.Render("[OK]"),
			map[bool]string{true: "enabled", false: "disabled"}[on])
		return true, nil

	case "/status", "/s":
		printStatus(session)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// switchSession changes the active session after verifying it exists.
func switchSession(session *ChatSession, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := session.Client.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	session.SessionID = doc.SessionIdentifier()
	rememberSession(session)

	summary := doc.Summary()
	fmt.Printf("%s Switched to session %s (%d messages)\n",
		commandStyle.Render("[OK]"),
		session.SessionID,
		summary.MessageCount)
	return nil
}

// newSession creates a fresh session and switches to it.
func newSession(session *ChatSession, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := session.Client.CreateSession(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.SessionID = doc.SessionIdentifier()
	rememberSession(session)

	fmt.Printf("%s Started session %s\n",
		commandStyle.Render("[OK]"),
		session.SessionID)
	return nil
}

// handleModelCommand shows or switches the generation model. The switch
// persists as a config override sent with every chat request.
func handleModelCommand(session *ChatSession, args []string) error {
	if len(args) == 0 {
		fmt.Printf("%s Current model: %s\n",
			infoStyle.Render("[Model]"),
			commandStyle.Render(session.Store.AIConfig().Model))
		return nil
	}

	newModel := args[0]
	if err := session.Store.UpdateAIConfig(state.AIConfigPatch{Model: &newModel}); err != nil {
		return fmt.Errorf("failed to save model setting: %w", err)
	}

	fmt.Printf("%s Switched to model: %s\n",
		commandStyle.Render("[OK]"),
		newModel)
	return nil
}

// printSessionList shows one page of sessions inside the REPL.
func printSessionList(session *ChatSession, page int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pagination := session.Store.Pagination()
	if page <= 0 {
		page = pagination.Page
	}

	result, err := session.Client.ListSessions(ctx, page, pagination.PageSize)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	renderSessionPage(result, session.SessionID)

	if err := session.Store.SetPagination(state.Pagination{Page: result.Page, PageSize: pagination.PageSize}); err != nil {
		fmt.Fprintf(os.Stderr, "%s Could not save list position: %v\n",
			warningStyle.Render("[Warning]"), err)
	}
	return nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the REPL banner.
func printWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("obelisk chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Backend:"),
		commandStyle.Render(session.Client.BaseURL()))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Session:"),
		commandStyle.Render(session.SessionID))

	ai := session.Store.AIConfig()
	fmt.Printf("%s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(ai.Model))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Client.Health(ctx); err != nil {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Status:"),
			warningStyle.Render("backend unreachable"))
	} else {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Status:"),
			commandStyle.Render("connected"))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printREPLHelp prints available slash commands.
func printREPLHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/history", "Show the session transcript"},
		{"/sessions [page]", "List sessions"},
		{"/session [id]", "Show or switch session"},
		{"/new [name]", "Start a fresh session"},
		{"/model [name]", "Show or switch model"},
		{"/markdown on|off", "Toggle markdown in /history"},
		{"/status, /s", "Show backend and session status"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-18s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current response, Ctrl+D exits"))
	fmt.Println()
}

// printStatus prints backend and session status.
func printStatus(session *ChatSession) {
	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(headerStyle.Render("Session Status"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	backend := commandStyle.Render("connected")
	if err := session.Client.Health(ctx); err != nil {
		backend = errorStyle.Render("unreachable")
	}
	fmt.Printf("  %s %s (%s)\n",
		infoStyle.Render("Backend:"),
		session.Client.BaseURL(),
		backend)

	fmt.Printf("  %s %s\n",
		infoStyle.Render("Session:"),
		commandStyle.Render(session.SessionID))

	ai := session.Store.AIConfig()
	fmt.Printf("  %s %s (temp %.1f, max %d tokens)\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(ai.Model),
		ai.Temperature,
		ai.MaxTokens)

	fmt.Printf("  %s %d this run\n",
		infoStyle.Render("Exchanges:"),
		session.Queries)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())

	// Server-side view of the session, if reachable
	if doc, err := session.Client.GetSession(ctx, session.SessionID); err == nil {
		summary := doc.Summary()
		fmt.Printf("  %s %d messages, %d turns\n",
			infoStyle.Render("Transcript:"),
			summary.MessageCount,
			summary.TurnCount)
		if summary.TokensInput > 0 || summary.TokensOutput > 0 {
			fmt.Printf("  %s %d in / %d out\n",
				infoStyle.Render("Tokens:"),
				summary.TokensInput,
				summary.TokensOutput)
		}
	}

	fmt.Println()
}

// printHistory fetches and prints the session transcript.
func printHistory(session *ChatSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := session.Client.GetSession(ctx, session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	messages := doc.Messages()
	if len(messages) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for _, msg := range messages {
		label := infoStyle.Render(msg.Role.DisplayName())
		switch msg.Role {
		case model.RoleUser:
			label = promptStyle.Render(msg.Role.DisplayName())
		case model.RoleAssistant:
			label = assistantLabelStyle.Render(msg.Role.DisplayName())
		}
		fmt.Println(label)

		if msg.Role == model.RoleAssistant && session.Markdown {
			fmt.Println(session.Formatter.Assistant(msg.DisplayContent()))
		} else {
			fmt.Println(session.Formatter.Plain(msg.DisplayContent()))
		}
		fmt.Println()
	}

	return nil
}

// printExitSummary prints a short summary on exit.
func printExitSummary(session *ChatSession) {
	if session.Queries == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Printf("%s %d exchanges in %s, session %s\n",
		infoStyle.Render("Session:"),
		session.Queries,
		elapsed.String(),
		session.SessionID)
	fmt.Println(infoStyle.Render("Goodbye!"))
}
