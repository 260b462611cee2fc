// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the obelisk TUI.
//
// This file bridges the api streaming client to the Bubble Tea event loop.
// ChatStream blocks until the stream ends, so it runs in a goroutine and
// forwards progress to the program as messages.
package chat

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/obelisk-tui/internal/api"
	"github.com/jeranaias/obelisk-tui/internal/model"
	"github.com/jeranaias/obelisk-tui/internal/state"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner executes streaming chat requests and delivers progress as
// Bubble Tea messages. The program pointer is set after tea.NewProgram,
// which needs the model, which needs the runner; SetProgram breaks the
// cycle.
type StreamRunner struct {
	mu      sync.Mutex
	program *tea.Program
	client  *api.Client
}

// NewStreamRunner creates a stream runner for the given API client.
func NewStreamRunner(client *api.Client) *StreamRunner {
	return &StreamRunner{client: client}
}

// SetProgram attaches the Bubble Tea program that receives stream messages.
func (r *StreamRunner) SetProgram(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = p
}

func (r *StreamRunner) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run starts a streaming chat request in a goroutine. Progress arrives as
// StreamStartMsg, StreamTokenMsg, and finally StreamCompleteMsg or
// StreamErrorMsg.
func (r *StreamRunner) Run(ctx context.Context, sessionID, message string, override *state.Override) {
	go r.run(ctx, sessionID, message, override)
}

func (r *StreamRunner) run(ctx context.Context, sessionID, message string, override *state.Override) {
	if r.client == nil {
		r.send(StreamErrorMsg{Err: api.ErrBackendUnavailable})
		return
	}

	sink := &programSink{runner: r}
	final, err := r.client.ChatStream(ctx, api.ChatRequest{
		SessionID:      sessionID,
		Message:        message,
		ConfigOverride: override,
	}, sink)

	if err != nil {
		r.send(StreamErrorMsg{
			MessageID: sink.messageID,
			Partial:   final,
			Err:       err,
		})
		return
	}

	// A cancelled stream returns the partial message without an error; the
	// sink already saw MessageCompleted in that case.
	if final != nil && !sink.completed {
		r.send(StreamCompleteMsg{MessageID: final.ID, Message: final})
	}
}

// programSink translates stream sink callbacks into program messages.
// MessageUpdated hands over the whole accumulated message, so the sink
// tracks the previous length and forwards only the new fragment.
type programSink struct {
	runner    *StreamRunner
	messageID string
	sentLen   int
	completed bool
}

func (s *programSink) MessageStarted(m *model.Message) {
	s.messageID = m.ID
	s.sentLen = 0
	s.runner.send(StreamStartMsg{MessageID: m.ID, StartTime: time.Now()})
}

func (s *programSink) MessageUpdated(m *model.Message) {
	content := m.DisplayContent()
	if len(content) <= s.sentLen {
		return
	}
	fragment := content[s.sentLen:]
	s.sentLen = len(content)
	s.runner.send(StreamTokenMsg{MessageID: m.ID, Token: fragment})
}

func (s *programSink) MessageCompleted(m *model.Message) {
	s.completed = true
	s.runner.send(StreamCompleteMsg{MessageID: m.ID, Message: m})
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// CheckBackendCmd creates a command that checks backend health.
func CheckBackendCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return BackendStatusMsg{Healthy: false, Err: api.ErrBackendUnavailable}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.Health(ctx)
		return BackendStatusMsg{Healthy: err == nil, Err: err}
	}
}

// LoadSessionCmd creates a command that loads a session document.
func LoadSessionCmd(client *api.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		doc, err := client.GetSession(ctx, sessionID)
		return SessionLoadedMsg{Doc: doc, Err: err}
	}
}

// ListSessionsCmd creates a command that loads one page of the session list.
func ListSessionsCmd(client *api.Client, page, pageSize int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := client.ListSessions(ctx, page, pageSize)
		return SessionsLoadedMsg{Page: result, Err: err}
	}
}

// CreateSessionCmd creates a command that creates a new backend session.
func CreateSessionCmd(client *api.Client, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		doc, err := client.CreateSession(ctx, name)
		return SessionCreatedMsg{Doc: doc, Err: err}
	}
}
