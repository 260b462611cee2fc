// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"
)

// =============================================================================
// TIMESTAMP TESTS (turns.go)
// =============================================================================

func TestTimestamp_UnmarshalFormats(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantZero bool
	}{
		{"rfc3339 with offset", `"2025-06-28T13:33:34.344567+00:00"`, false},
		{"rfc3339 zulu", `"2025-06-28T13:33:34Z"`, false},
		{"space separated with micros", `"2025-06-28 13:33:00.779657"`, false},
		{"space separated seconds", `"2025-06-28 13:33:00"`, false},
		{"null", `null`, true},
		{"empty string", `""`, true},
		{"garbage", `"yesterday-ish"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.input, err)
			}
			if ts.IsZero() != tt.wantZero {
				t.Errorf("IsZero() = %v, want %v for %s", ts.IsZero(), tt.wantZero, tt.input)
			}
		})
	}
}

func TestTimestamp_OrderAcrossFormats(t *testing.T) {
	var early, late Timestamp
	if err := json.Unmarshal([]byte(`"2025-06-28 13:33:00.779657"`), &early); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`"2025-06-28T13:34:00.000000+00:00"`), &late); err != nil {
		t.Fatal(err)
	}
	if !early.Before(late.Time) {
		t.Errorf("expected %v before %v", early.Time, late.Time)
	}
}

// =============================================================================
// FLATTEN TESTS (turns.go)
// =============================================================================

func ts(t *testing.T, s string) Timestamp {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return Timestamp{parsed}
}

func boolPtr(b bool) *bool { return &b }

func TestFlattenTurns_OrdersByTimestamp(t *testing.T) {
	turns := []ConversationTurn{
		{
			TurnID:     "t2",
			TurnNumber: 2,
			UserMessage: &TurnUserMessage{
				MessageID: "u2", Content: "second question",
				Timestamp: ts(t, "2025-06-28T13:35:00Z"),
			},
			AssistantResponses: []AssistantResponse{
				{MessageID: "a2", Content: "second answer", Timestamp: ts(t, "2025-06-28T13:35:30Z")},
			},
		},
		{
			TurnID:     "t1",
			TurnNumber: 1,
			UserMessage: &TurnUserMessage{
				MessageID: "u1", Content: "first question",
				Timestamp: ts(t, "2025-06-28T13:33:00Z"),
			},
			AssistantResponses: []AssistantResponse{
				{MessageID: "a1", Content: "first answer", Timestamp: ts(t, "2025-06-28T13:33:30Z")},
			},
		},
	}

	msgs := FlattenTurns(turns)
	wantIDs := []string{"u1", "a1", "u2", "a2"}
	if len(msgs) != len(wantIDs) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(wantIDs))
	}
	for i, id := range wantIDs {
		if msgs[i].ID != id {
			t.Errorf("message %d = %s, want %s", i, msgs[i].ID, id)
		}
	}
}

func TestFlattenTurns_EqualTimestampsKeepTurnOrder(t *testing.T) {
	same := ts(t, "2025-06-28T13:33:00Z")
	turns := []ConversationTurn{
		{
			TurnID: "t1",
			UserMessage: &TurnUserMessage{
				MessageID: "u1", Content: "q", Timestamp: same,
			},
			AssistantResponses: []AssistantResponse{
				{MessageID: "a1", Content: "r1", Timestamp: same},
				{MessageID: "a2", Content: "r2", Timestamp: same},
			},
		},
	}

	msgs := FlattenTurns(turns)
	wantIDs := []string{"u1", "a1", "a2"}
	if len(msgs) != len(wantIDs) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(wantIDs))
	}
	for i, id := range wantIDs {
		if msgs[i].ID != id {
			t.Errorf("message %d = %s, want %s (stable order)", i, msgs[i].ID, id)
		}
	}
}

func TestFlattenTurns_EqualTimestampsOrderByTurnNumber(t *testing.T) {
	same := ts(t, "2025-06-28T13:33:00Z")
	turns := []ConversationTurn{
		{
			TurnID:     "t2",
			TurnNumber: 2,
			UserMessage: &TurnUserMessage{
				MessageID: "u2", Content: "second question", Timestamp: same,
			},
			AssistantResponses: []AssistantResponse{
				{MessageID: "a2", Content: "second answer", Timestamp: same},
			},
		},
		{
			TurnID:     "t1",
			TurnNumber: 1,
			UserMessage: &TurnUserMessage{
				MessageID: "u1", Content: "first question", Timestamp: same,
			},
			AssistantResponses: []AssistantResponse{
				{MessageID: "a1", Content: "first answer", Timestamp: same},
			},
		},
	}

	msgs := FlattenTurns(turns)
	wantIDs := []string{"u1", "a1", "u2", "a2"}
	if len(msgs) != len(wantIDs) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(wantIDs))
	}
	for i, id := range wantIDs {
		if msgs[i].ID != id {
			t.Errorf("message %d = %s, want %s (turn number order)", i, msgs[i].ID, id)
		}
	}
}

func TestFlattenTurns_InactiveResponsesExcluded(t *testing.T) {
	turns := []ConversationTurn{
		{
			TurnID: "t1",
			UserMessage: &TurnUserMessage{
				MessageID: "u1", Content: "q", Timestamp: ts(t, "2025-06-28T13:33:00Z"),
			},
			AssistantResponses: []AssistantResponse{
				{MessageID: "rejected", Content: "old", Timestamp: ts(t, "2025-06-28T13:33:10Z"), IsActive: boolPtr(false)},
				{MessageID: "explicit", Content: "kept", Timestamp: ts(t, "2025-06-28T13:33:20Z"), IsActive: boolPtr(true)},
				{MessageID: "implicit", Content: "also kept", Timestamp: ts(t, "2025-06-28T13:33:30Z")},
			},
		},
	}

	msgs := FlattenTurns(turns)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for _, m := range msgs {
		if m.ID == "rejected" {
			t.Error("explicitly inactive response should be excluded")
		}
	}
}

func TestFlattenTurns_FinalContentPreferred(t *testing.T) {
	turns := []ConversationTurn{
		{
			AssistantResponses: []AssistantResponse{
				{
					MessageID:    "a1",
					Content:      "raw streamed text",
					FinalContent: "cleaned up text",
					Timestamp:    ts(t, "2025-06-28T13:33:00Z"),
				},
				{
					MessageID: "a2",
					Content:   "only raw text",
					Timestamp: ts(t, "2025-06-28T13:34:00Z"),
				},
			},
		},
	}

	msgs := FlattenTurns(turns)
	if msgs[0].Content != "cleaned up text" {
		t.Errorf("message a1 Content = %q, want final content", msgs[0].Content)
	}
	if msgs[1].Content != "only raw text" {
		t.Errorf("message a2 Content = %q, want raw content fallback", msgs[1].Content)
	}
}

func TestFlattenTurns_MissingPieces(t *testing.T) {
	tests := []struct {
		name  string
		turns []ConversationTurn
		want  int
	}{
		{"nil input", nil, 0},
		{"empty input", []ConversationTurn{}, 0},
		{"turn with no user message", []ConversationTurn{
			{AssistantResponses: []AssistantResponse{
				{MessageID: "a1", Content: "orphan", Timestamp: ts(t, "2025-06-28T13:33:00Z")},
			}},
		}, 1},
		{"turn with no responses", []ConversationTurn{
			{UserMessage: &TurnUserMessage{MessageID: "u1", Content: "unanswered"}},
		}, 1},
		{"completely empty turn", []ConversationTurn{{TurnID: "t1"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := FlattenTurns(tt.turns)
			if len(msgs) != tt.want {
				t.Errorf("got %d messages, want %d", len(msgs), tt.want)
			}
		})
	}
}

func TestFlattenTurns_ZeroTimestampsSortFirst(t *testing.T) {
	turns := []ConversationTurn{
		{
			UserMessage: &TurnUserMessage{
				MessageID: "dated", Content: "q", Timestamp: ts(t, "2025-06-28T13:33:00Z"),
			},
		},
		{
			UserMessage: &TurnUserMessage{MessageID: "undated", Content: "q"},
		},
	}

	msgs := FlattenTurns(turns)
	if msgs[0].ID != "undated" {
		t.Errorf("zero timestamp should sort before real ones, got %s first", msgs[0].ID)
	}
}

func TestFlattenTurns_CarriesTurnIdentity(t *testing.T) {
	turns := []ConversationTurn{
		{
			TurnID:     "turn_7",
			TurnNumber: 7,
			UserMessage: &TurnUserMessage{
				MessageID: "u1", Content: "q", Timestamp: ts(t, "2025-06-28T13:33:00Z"),
			},
			AssistantResponses: []AssistantResponse{
				{
					MessageID: "a1", ResponseID: "resp_9", Content: "r",
					Timestamp: ts(t, "2025-06-28T13:33:30Z"),
				},
			},
		},
	}

	msgs := FlattenTurns(turns)
	if msgs[0].TurnID != "turn_7" || msgs[0].TurnNumber != 7 {
		t.Errorf("user message turn identity = %s/%d", msgs[0].TurnID, msgs[0].TurnNumber)
	}
	if msgs[1].ResponseID != "resp_9" {
		t.Errorf("assistant ResponseID = %s, want resp_9", msgs[1].ResponseID)
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Error("roles should reflect message origin")
	}
}

// =============================================================================
// SESSION DOCUMENT TESTS (session.go)
// =============================================================================

func TestSessionDocument_DecodeAndFlatten(t *testing.T) {
	raw := `{
		"session_id": "sess_abc",
		"name": "demo",
		"status": "active",
		"message_count": 2,
		"metadata": {
			"total_messages": 2,
			"total_turns": 1,
			"model": "deepseek/deepseek-chat-v3-0324:free",
			"settings": {"temperature": 0.7, "max_tokens": 1000, "streaming": true}
		},
		"conversation_history": {
			"conversation_turns": [
				{
					"turn_id": "t1",
					"turn_number": 1,
					"user_message": {
						"message_id": "u1",
						"content": "hello",
						"timestamp": "2025-06-28 13:33:00.779657"
					},
					"assistant_responses": [
						{
							"message_id": "a1",
							"response_id": "r1",
							"content": "hi there",
							"timestamp": "2025-06-28T13:33:05.123456+00:00",
							"is_active": true
						}
					]
				}
			]
		}
	}`

	var doc SessionDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if doc.SessionIdentifier() != "sess_abc" {
		t.Errorf("SessionIdentifier() = %q", doc.SessionIdentifier())
	}
	if doc.Metadata.Settings == nil {
		t.Fatal("metadata settings missing")
	}
	if doc.Metadata.Settings.Temperature != 0.7 {
		t.Errorf("Temperature = %v", doc.Metadata.Settings.Temperature)
	}

	msgs := doc.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "hello" || msgs[1].Content != "hi there" {
		t.Errorf("contents = %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

func TestSessionDocument_NilHistoryIsSafe(t *testing.T) {
	var doc SessionDocument
	if got := doc.Messages(); len(got) != 0 {
		t.Errorf("Messages() on empty document = %d entries", len(got))
	}
}
