// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a rendered conversation.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Turn linkage (set for messages derived from conversation history)
	TurnID     string `json:"turn_id,omitempty"`
	TurnNumber int    `json:"turn_number,omitempty"`
	ResponseID string `json:"response_id,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Error state: set when a stream ended with an error event or a
	// transport failure. Content then holds the user-visible error text.
	IsError bool `json:"is_error,omitempty"`

	// Tool call metadata carried through from assistant responses.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall holds the tool invocation metadata attached to an assistant
// response. The backend shape is loose, so unknown fields are dropped.
type ToolCall struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Input  string `json:"input,omitempty"`
	Result string `json:"result,omitempty"`
}

// NewMessage creates a new finalized message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewStreamingMessage creates a new assistant message in streaming state
// with empty content.
func NewStreamingMessage() *Message {
	return &Message{
		ID:          generateMessageID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends a delta fragment to a streaming message.
// No-op on a finalized message.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// FinalizeStream freezes a streaming message. If finalContent is non-empty
// it replaces the accumulated buffer, otherwise the buffer becomes the
// message content. No-op on an already finalized message.
func (m *Message) FinalizeStream(finalContent string) {
	if !m.IsStreaming {
		return
	}

	if finalContent != "" {
		m.Content = finalContent
	} else {
		m.Content = m.streamContent.String()
	}
	m.streamContent.Reset()
	m.IsStreaming = false
}

// FailStream freezes a streaming message as errored, with errText as the
// user-visible content. No-op on an already finalized message.
func (m *Message) FailStream(errText string) {
	if !m.IsStreaming {
		return
	}

	m.Content = errText
	m.IsError = true
	m.streamContent.Reset()
	m.IsStreaming = false
}

// DisplayContent returns the content to display (streaming or final).
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// AccumulatedLen returns the current length of the streaming buffer.
func (m *Message) AccumulatedLen() int {
	return m.streamContent.Len()
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.DisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	return "msg_" + uuid.NewString()
}
