// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the obelisk TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/obelisk-tui/internal/api"
	"github.com/jeranaias/obelisk-tui/internal/config"
	"github.com/jeranaias/obelisk-tui/internal/format"
	"github.com/jeranaias/obelisk-tui/internal/model"
	"github.com/jeranaias/obelisk-tui/internal/state"
	"github.com/jeranaias/obelisk-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streaming response
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State
	ready bool // Viewport sized after the first WindowSizeMsg

	// Styling and rendering
	theme     *styles.Theme
	formatter *format.Formatter

	// Dimensions
	width  int
	height int

	// Conversation
	sessionID string
	history   []*model.Message

	// Current streaming response
	streamingID string
	streamed    string // Content flushed from the buffer so far
	streamStart time.Time

	// Streaming optimization
	streamingBuffer   *StreamingBuffer
	viewportOptimizer *ViewportOptimizer
	// Pointer to avoid copying the mutex during Bubble Tea updates
	cancelMgr *cancelManager

	// Backend
	client  *api.Client
	runner  *StreamRunner
	store   *state.Store
	cfg     *config.Config
	healthy bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Error and status display
	lastError *ErrorMsg
	statusMsg string
	showHelp  bool
}

// New creates a chat model wired to the given backend client. The runner
// must have its program set before the first submit; see StreamRunner.
func New(theme *styles.Theme, cfg *config.Config, client *api.Client, runner *StreamRunner, store *state.Store) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 8192
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = theme.Spinner

	fmtOpts := []format.Option{}
	if cfg != nil {
		fmtOpts = append(fmtOpts, format.WithMarkdown(cfg.UI.Markdown))
		if cfg.UI.WrapWidth > 0 {
			fmtOpts = append(fmtOpts, format.WithWidth(cfg.UI.WrapWidth))
		}
	}

	return Model{
		state:             StateReady,
		theme:             theme,
		formatter:         format.New(fmtOpts...),
		streamingBuffer:   NewStreamingBuffer(),
		viewportOptimizer: NewViewportOptimizer(),
		cancelMgr:         newCancelManager(),
		client:            client,
		runner:            runner,
		store:             store,
		cfg:               cfg,
		input:             input,
		spinner:           sp,
		keyMap:            DefaultKeyMap(),
	}
}

// Init implements tea.Model. It checks backend health and resumes the last
// session when one is recorded, creating a fresh session otherwise.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		CheckBackendCmd(m.client),
	}

	if m.client != nil {
		if last := m.lastSessionID(); last != "" {
			cmds = append(cmds, LoadSessionCmd(m.client, last))
		} else {
			cmds = append(cmds, CreateSessionCmd(m.client, ""))
		}
	}

	return tea.Batch(cmds...)
}

func (m Model) lastSessionID() string {
	if m.store == nil {
		return ""
	}
	return m.store.CurrentSessionID()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case BackendStatusMsg:
		m.healthy = msg.Healthy
		if !msg.Healthy && msg.Err != nil {
			m.statusMsg = "backend unreachable"
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case SessionLoadedMsg:
		return m.handleSessionLoaded(msg)

	case SessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case SessionsLoadedMsg:
		if msg.Err == nil && msg.Page != nil {
			m.statusMsg = fmt.Sprintf("%d sessions", msg.Page.Total)
		}
		return m, nil

	case ErrorMsg:
		m.lastError = &msg
		return m, nil

	case ClearErrorMsg:
		m.lastError = nil
		return m, nil
	}

	// Everything else goes to the focused input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model. Rendering lives in view.go.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// RESIZE AND KEY HANDLING
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	if m.theme != nil {
		m.theme.SetSize(msg.Width, msg.Height)
	}

	headerHeight := 3
	footerHeight := 4
	viewportHeight := msg.Height - headerHeight - footerHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	m.input.Width = msg.Width - 4
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.cancelMgr.clear()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateStreaming {
			// The runner finalizes the partial response and delivers it
			// as a StreamCompleteMsg.
			m.cancelMgr.cancel()
			m.statusMsg = "stream cancelled"
		}
		m.lastError = nil
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		if m.state != StateStreaming {
			m.history = nil
			m.viewportOptimizer.Reset()
			m.updateViewport()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown),
		key.Matches(msg, m.keyMap.Home), key.Matches(msg, m.keyMap.End),
		key.Matches(msg, m.keyMap.Up), key.Matches(msg, m.keyMap.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" || m.state == StateStreaming {
		return m, nil
	}
	if m.sessionID == "" {
		m.lastError = &ErrorMsg{Title: "No Session", Message: "Waiting for the backend to create a session."}
		return m, nil
	}
	if m.runner == nil {
		m.lastError = &ErrorMsg{Title: "Not Connected", Message: "No backend client configured."}
		return m, nil
	}

	m.history = append(m.history, model.NewUserMessage(content))
	m.input.Reset()
	m.lastError = nil
	m.statusMsg = ""
	m.state = StateStreaming
	m.streamed = ""
	m.streamingID = ""
	m.streamStart = time.Now()
	m.streamingBuffer.Reset()
	m.updateViewport()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	var override *state.Override
	if m.store != nil {
		override = m.store.ConfigOverride()
	}
	m.runner.Run(ctx, m.sessionID, content, override)

	return m, tea.Batch(streamTickCmd(), m.spinner.Tick)
}

// =============================================================================
// STREAM MESSAGE HANDLERS
// =============================================================================

func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	m.state = StateStreaming
	m.streamingID = msg.MessageID
	if m.streamStart.IsZero() {
		m.streamStart = msg.StartTime
	}
	return m, nil
}

func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	m.streamingBuffer.Write(msg.Token)
	return m, nil
}

func (m Model) handleStreamTick(StreamTickMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}

	if content, ok := m.streamingBuffer.Flush(); ok {
		m.streamed += content
		m.updateViewport()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	// Late completion for a stream we already abandoned.
	if m.state != StateStreaming && msg.Message == nil {
		return m, nil
	}

	m.streamingBuffer.Reset()
	m.streamed = ""
	m.streamingID = ""
	m.state = StateReady
	m.cancelMgr.clear()

	if msg.Message != nil {
		m.history = append(m.history, msg.Message)
	}
	m.updateViewport()
	return m, nil
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	m.streamingBuffer.Reset()
	m.streamed = ""
	m.streamingID = ""
	m.state = StateReady
	m.cancelMgr.clear()

	if msg.Partial != nil && !msg.Partial.IsEmpty() {
		m.history = append(m.history, msg.Partial)
	}
	m.lastError = streamErrorBox(msg.Err)
	m.updateViewport()
	return m, nil
}

func streamErrorBox(err error) *ErrorMsg {
	if err == nil {
		return &ErrorMsg{Title: "Stream Failed", Message: "The response stream ended unexpectedly."}
	}

	var streamErr *api.StreamError
	switch {
	case errors.Is(err, api.ErrBackendUnavailable):
		return &ErrorMsg{Title: "Backend Unavailable", Message: "Cannot reach the obelisk backend. Check that it is running."}
	case errors.Is(err, api.ErrRateLimited):
		return &ErrorMsg{Title: "Rate Limited", Message: "The backend is throttling requests. Wait a moment and retry."}
	case errors.As(err, &streamErr):
		return &ErrorMsg{Title: "Stream Interrupted", Message: streamErr.Err.Error()}
	}
	return &ErrorMsg{Title: "Error", Message: err.Error()}
}

// handleConfigReloaded applies a configuration that changed on disk while
// the TUI is running. The formatter is rebuilt so markdown and wrap
// settings take effect on the next render.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}

	m.cfg = msg.Config

	fmtOpts := []format.Option{format.WithMarkdown(m.cfg.UI.Markdown)}
	if m.cfg.UI.WrapWidth > 0 {
		fmtOpts = append(fmtOpts, format.WithWidth(m.cfg.UI.WrapWidth))
	}
	m.formatter = format.New(fmtOpts...)

	m.statusMsg = "config reloaded"
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	return m, nil
}

// =============================================================================
// SESSION MESSAGE HANDLERS
// =============================================================================

func (m Model) handleSessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// A stale stored session ID is expected after backend resets; fall
		// back to a fresh session instead of surfacing the 404.
		if errors.Is(msg.Err, api.ErrSessionNotFound) && m.client != nil {
			return m, CreateSessionCmd(m.client, "")
		}
		m.lastError = &ErrorMsg{Title: "Session Load Failed", Message: msg.Err.Error()}
		return m, nil
	}

	m.sessionID = msg.Doc.SessionIdentifier()
	m.history = msg.Doc.Messages()
	m.rememberSession()
	m.viewportOptimizer.Reset()
	m.updateViewport()
	return m, nil
}

func (m Model) handleSessionCreated(msg SessionCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.lastError = &ErrorMsg{Title: "Session Create Failed", Message: msg.Err.Error()}
		return m, nil
	}

	m.sessionID = msg.Doc.SessionIdentifier()
	m.history = nil
	m.rememberSession()
	m.viewportOptimizer.Reset()
	m.updateViewport()
	return m, nil
}

func (m Model) rememberSession() {
	if m.store == nil || m.sessionID == "" {
		return
	}
	if err := m.store.SetCurrentSession(m.sessionID); err != nil {
		m.statusMsg = "state save failed"
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// SessionID returns the active backend session identifier.
func (m *Model) SessionID() string {
	return m.sessionID
}

// IsStreaming reports whether a response stream is in flight.
func (m *Model) IsStreaming() bool {
	return m.state == StateStreaming
}

// History returns the rendered conversation so far.
func (m *Model) History() []*model.Message {
	return m.history
}
