// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient points a client at a test server with pacing disabled so
// tests run at full speed.
func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL).WithRateLimit(0)
}

// =============================================================================
// SESSION ENDPOINT TESTS (client.go)
// =============================================================================

func TestListSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" {
			t.Errorf("path = %s, want /sessions", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %s, want 2", got)
		}
		if got := r.URL.Query().Get("page_size"); got != "10" {
			t.Errorf("page_size = %s, want 10", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"sessions": [
				{"session_id": "sess_1", "name": "alpha", "message_count": 4},
				{"session_id": "sess_2", "name": "beta", "message_count": 0}
			],
			"page": 2, "page_size": 10, "total": 12, "total_pages": 2
		}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	page, err := client.ListSessions(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if len(page.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(page.Sessions))
	}
	if page.Sessions[0].Identifier() != "sess_1" {
		t.Errorf("first session = %q", page.Sessions[0].Identifier())
	}
	if page.Total != 12 || page.TotalPages != 2 {
		t.Errorf("pagination = %d/%d", page.Total, page.TotalPages)
	}
}

func TestGetSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/sess_abc" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"session_id": "sess_abc",
			"name": "demo",
			"conversation_history": {
				"conversation_turns": [
					{
						"turn_id": "t1",
						"turn_number": 1,
						"user_message": {
							"message_id": "u1", "content": "hi",
							"timestamp": "2025-06-28T13:33:00Z"
						},
						"assistant_responses": [
							{"message_id": "a1", "content": "hello",
							 "timestamp": "2025-06-28T13:33:05Z"}
						]
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	doc, err := client.GetSession(context.Background(), "sess_abc")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if doc.SessionIdentifier() != "sess_abc" {
		t.Errorf("SessionIdentifier() = %q", doc.SessionIdentifier())
	}
	msgs := doc.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestGetSession_EmptyIDRejected(t *testing.T) {
	client := NewClient("http://unused.invalid").WithRateLimit(0)
	if _, err := client.GetSession(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}

func TestGetSession_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "session sess_missing not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetSession(context.Background(), "sess_missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body["name"] != "fresh" {
			t.Errorf("name = %q", body["name"])
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"session_id": "sess_new", "name": "fresh"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	doc, err := client.CreateSession(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if doc.SessionIdentifier() != "sess_new" {
		t.Errorf("SessionIdentifier() = %q", doc.SessionIdentifier())
	}
}

func TestHandleErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantText string
	}{
		{"not found with detail", 404, `{"detail": "no such session"}`, ErrSessionNotFound, "no such session"},
		{"rate limited", 429, `{"error": "slow down"}`, ErrRateLimited, "slow down"},
		{"not found unparseable", 404, "gone", ErrSessionNotFound, ""},
		{"plain server error", 500, "boom", nil, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleErrorResponse(tt.status, []byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("err = %T, want *APIError", err)
				}
				if apiErr.Status != tt.status {
					t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
				}
			}
		})
	}
}

func TestClient_BackendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL).WithRateLimit(0).WithTimeout(time.Second)
	if err := client.Health(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
}
