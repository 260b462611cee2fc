// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// Session holds the summary record the backend returns when listing
// sessions. Owned by the backend; the client treats it as read-only.
type Session struct {
	SessionID    string          `json:"session_id,omitempty"`
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Status       string          `json:"status,omitempty"`
	CreatedAt    Timestamp       `json:"created_at"`
	UpdatedAt    Timestamp       `json:"updated_at"`
	MessageCount int             `json:"message_count"`
	Metadata     SessionMetadata `json:"metadata,omitempty"`
}

// Identifier returns whichever of session_id/id is set.
func (s *Session) Identifier() string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.ID
}

// SessionMetadata carries the backend's per-session aggregate data. All
// fields are optional; absent sections decode to zero values.
type SessionMetadata struct {
	TotalMessages int                `json:"total_messages,omitempty"`
	TotalTurns    int                `json:"total_turns,omitempty"`
	Model         string             `json:"model,omitempty"`
	Settings      *SessionSettings   `json:"settings,omitempty"`
	Statistics    *SessionStatistics `json:"statistics,omitempty"`
	Extra         json.RawMessage    `json:"user_preferences,omitempty"`
}

// SessionSettings is the generation config snapshot stored on a session.
type SessionSettings struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Streaming   bool    `json:"streaming,omitempty"`
}

// SessionStatistics holds backend-computed aggregate numbers.
type SessionStatistics struct {
	LastResponseTimeMs int64 `json:"last_response_time_ms,omitempty"`
	TotalTokensInput   int   `json:"total_tokens_input,omitempty"`
	TotalTokensOutput  int   `json:"total_tokens_output,omitempty"`
}

// SessionDocument is the full per-session record fetched for rendering:
// session info plus turn-structured conversation history.
type SessionDocument struct {
	SessionID    string          `json:"session_id"`
	ID           string          `json:"id,omitempty"` // some endpoints use "id"
	Name         string          `json:"name,omitempty"`
	Status       string          `json:"status,omitempty"`
	CreatedAt    Timestamp       `json:"created_at"`
	UpdatedAt    Timestamp       `json:"updated_at"`
	MessageCount int             `json:"message_count"`
	Metadata     SessionMetadata `json:"metadata,omitempty"`

	ConversationHistory *ConversationHistory `json:"conversation_history,omitempty"`
}

// ConversationHistory wraps the turn list inside a session document.
type ConversationHistory struct {
	ConversationTurns []ConversationTurn `json:"conversation_turns,omitempty"`
}

// SessionIdentifier returns whichever of session_id/id is set.
func (d *SessionDocument) SessionIdentifier() string {
	if d.SessionID != "" {
		return d.SessionID
	}
	return d.ID
}

// Turns returns the conversation turns, or nil when the history section is
// missing. Callers flatten with FlattenTurns, which accepts nil.
func (d *SessionDocument) Turns() []ConversationTurn {
	if d.ConversationHistory == nil {
		return nil
	}
	return d.ConversationHistory.ConversationTurns
}

// Messages flattens the document's history into the ordered message list.
// A document without history yields an empty list, signalling a degraded
// but renderable state.
func (d *SessionDocument) Messages() []*Message {
	return FlattenTurns(d.Turns())
}

// =============================================================================
// SESSION SUMMARY
// =============================================================================

// SessionSummary is the read-only metadata view derived from a session
// document for display in headers and the session list.
type SessionSummary struct {
	ID             string
	Name           string
	Status         string
	Model          string
	MessageCount   int
	TurnCount      int
	TokensInput    int
	TokensOutput   int
	LastResponseMs int64
}

// Summary derives the metadata summary from a session document.
func (d *SessionDocument) Summary() SessionSummary {
	s := SessionSummary{
		ID:           d.SessionIdentifier(),
		Name:         d.Name,
		Status:       d.Status,
		Model:        d.Metadata.Model,
		MessageCount: d.MessageCount,
		TurnCount:    len(d.Turns()),
	}

	if d.Metadata.TotalTurns > 0 {
		s.TurnCount = d.Metadata.TotalTurns
	}
	if s.MessageCount == 0 {
		s.MessageCount = d.Metadata.TotalMessages
	}
	if stats := d.Metadata.Statistics; stats != nil {
		s.TokensInput = stats.TotalTokensInput
		s.TokensOutput = stats.TotalTokensOutput
		s.LastResponseMs = stats.LastResponseTimeMs
	}

	return s
}
