// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// TIMESTAMP TYPE
// =============================================================================

// Timestamp wraps time.Time with permissive JSON decoding. The backend emits
// both RFC 3339 timestamps ("2025-06-28T13:33:34.344567+00:00") and
// space-separated ones ("2025-06-28 13:33:00.779657"); both are accepted.
// A missing, null, or unparseable value decodes to the zero time.
type Timestamp struct {
	time.Time
}

// timestampLayouts are tried in order when decoding.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	// Unparseable timestamps degrade to zero rather than failing the
	// whole document.
	t.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// =============================================================================
// CONVERSATION TURN TYPES
// =============================================================================

// ConversationTurn is one exchange unit from the backend's conversation
// history: at most one user message plus zero or more assistant responses.
type ConversationTurn struct {
	TurnID             string              `json:"turn_id"`
	TurnNumber         int                 `json:"turn_number"`
	UserMessage        *TurnUserMessage    `json:"user_message,omitempty"`
	AssistantResponses []AssistantResponse `json:"assistant_responses,omitempty"`
}

// TurnUserMessage is the user half of a turn.
type TurnUserMessage struct {
	MessageID string          `json:"message_id"`
	Content   string          `json:"content"`
	Timestamp Timestamp       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// AssistantResponse is one assistant reply within a turn. A turn can carry
// several (regenerations); IsActive marks which one the backend considers
// current. An absent IsActive means active.
type AssistantResponse struct {
	MessageID    string          `json:"message_id"`
	ResponseID   string          `json:"response_id"`
	FinalContent string          `json:"final_content,omitempty"`
	Content      string          `json:"content,omitempty"`
	Timestamp    Timestamp       `json:"timestamp"`
	IsActive     *bool           `json:"is_active,omitempty"`
	ToolCalls    []ToolCall      `json:"tool_calls,omitempty"`
	MCPCalls     json.RawMessage `json:"mcp_calls,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// Included reports whether this response belongs in the rendered timeline.
// Only an explicit false excludes it.
func (r *AssistantResponse) Included() bool {
	return r.IsActive == nil || *r.IsActive
}

// EffectiveContent returns the response text, preferring the final content
// over the raw streaming content when both are present.
func (r *AssistantResponse) EffectiveContent() string {
	if r.FinalContent != "" {
		return r.FinalContent
	}
	return r.Content
}

// =============================================================================
// TURN FLATTENING
// =============================================================================

// FlattenTurns converts turn-structured history into a flat message list
// ordered by timestamp ascending, with turn number breaking timestamp ties
// so unsorted turn arrays still come out in conversation order. Within a
// turn the user message is emitted before the assistant responses, and
// responses keep their array order; the sort is stable, so full ties
// preserve that emission order.
//
// Missing optional fields are treated as absent and never panic. The result
// for nil input is an empty slice.
func FlattenTurns(turns []ConversationTurn) []*Message {
	messages := make([]*Message, 0, len(turns)*2)

	for i := range turns {
		turn := &turns[i]

		if turn.UserMessage != nil {
			messages = append(messages, &Message{
				ID:         turn.UserMessage.MessageID,
				Role:       RoleUser,
				Content:    turn.UserMessage.Content,
				Timestamp:  turn.UserMessage.Timestamp.Time,
				TurnID:     turn.TurnID,
				TurnNumber: turn.TurnNumber,
			})
		}

		for j := range turn.AssistantResponses {
			resp := &turn.AssistantResponses[j]
			if !resp.Included() {
				continue
			}
			messages = append(messages, &Message{
				ID:         resp.MessageID,
				Role:       RoleAssistant,
				Content:    resp.EffectiveContent(),
				Timestamp:  resp.Timestamp.Time,
				TurnID:     turn.TurnID,
				TurnNumber: turn.TurnNumber,
				ResponseID: resp.ResponseID,
				ToolCalls:  resp.ToolCalls,
			})
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].Timestamp.Before(messages[j].Timestamp)
		}
		return messages[i].TurnNumber < messages[j].TurnNumber
	})

	return messages
}
