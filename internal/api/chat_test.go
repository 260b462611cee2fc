// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/obelisk-tui/internal/state"
)

// =============================================================================
// STREAMING CHAT TESTS (chat.go)
// =============================================================================

func streamHandler(t *testing.T, lines []string, wantOverride bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %s, want /chat", r.URL.Path)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if !req.Stream {
			t.Error("stream should be forced true")
		}
		if wantOverride && req.ConfigOverride == nil {
			t.Error("config_override missing")
		}
		if !wantOverride && req.ConfigOverride != nil {
			t.Error("config_override should be omitted")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			w.Write([]byte(line + "\n\n"))
			flusher.Flush()
		}
	}
}

func TestChatStream_AssemblesResponse(t *testing.T) {
	lines := []string{
		`data: {"event":"RunStarted"}`,
		`data: {"event":"RunResponse","content":"The answer "}`,
		`data: {"event":"RunResponse","content":"is 42."}`,
		`data: {"event":"RunCompleted"}`,
		`data: [DONE]`,
	}
	server := httptest.NewServer(streamHandler(t, lines, false))
	defer server.Close()

	client := newTestClient(server)
	msg, err := client.ChatStream(context.Background(), ChatRequest{
		SessionID: "sess_1",
		Message:   "what is the answer?",
	}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a finalized message")
	}
	if msg.Content != "The answer is 42." {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("returned message should be finalized")
	}
}

func TestChatStream_FinalContentOverrides(t *testing.T) {
	lines := []string{
		`data: {"event":"RunStarted"}`,
		`data: {"event":"RunResponse","content":"draft"}`,
		`data: {"event":"RunCompleted","content":"polished answer"}`,
	}
	server := httptest.NewServer(streamHandler(t, lines, false))
	defer server.Close()

	client := newTestClient(server)
	msg, err := client.ChatStream(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if msg.Content != "polished answer" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestChatStream_ErrorEvent(t *testing.T) {
	lines := []string{
		`data: {"event":"RunStarted"}`,
		`data: {"event":"RunResponse","content":"part"}`,
		`data: {"event":"RunError","error":"model overloaded"}`,
	}
	server := httptest.NewServer(streamHandler(t, lines, false))
	defer server.Close()

	client := newTestClient(server)
	msg, err := client.ChatStream(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if msg == nil || !msg.IsError {
		t.Fatal("expected an errored message")
	}
	if msg.Content != "model overloaded" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestChatStream_SendsConfigOverride(t *testing.T) {
	lines := []string{
		`data: {"event":"RunCompleted","content":"ok"}`,
	}
	server := httptest.NewServer(streamHandler(t, lines, true))
	defer server.Close()

	temp := 0.1
	client := newTestClient(server)
	_, err := client.ChatStream(context.Background(), ChatRequest{
		SessionID:      "s",
		Message:        "m",
		ConfigOverride: &state.Override{Temperature: &temp},
	}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
}

func TestChatStream_TruncatedStreamKeepsPartial(t *testing.T) {
	lines := []string{
		`data: {"event":"RunStarted"}`,
		`data: {"event":"RunResponse","content":"cut short"}`,
		// No terminal event; server closes the connection.
	}
	server := httptest.NewServer(streamHandler(t, lines, false))
	defer server.Close()

	client := newTestClient(server)
	msg, err := client.ChatStream(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if msg == nil {
		t.Fatal("expected the partial message finalized")
	}
	if msg.Content != "cut short" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestChatStream_TransportFailureFinalizesErrored(t *testing.T) {
	// Promise more body bytes than are sent, then drop the connection, so
	// the client's read fails with a non-EOF error mid-stream.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("server does not support hijacking")
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack failed: %v", err)
		}
		defer conn.Close()

		body := "data: {\"event\":\"RunStarted\"}\n\n" +
			"data: {\"event\":\"RunResponse\",\"content\":\"partial text\"}\n\n"
		fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nContent-Length: %d\r\n\r\n",
			len(body)+64)
		buf.WriteString(body)
		buf.Flush()
	}))
	defer server.Close()

	client := newTestClient(server)
	msg, err := client.ChatStream(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
	if streamErr.Partial != "partial text" {
		t.Errorf("Partial = %q, want the accumulated content", streamErr.Partial)
	}
	if msg == nil {
		t.Fatal("expected the in-flight message finalized")
	}
	if !msg.IsError {
		t.Error("message should be finalized as errored after a transport failure")
	}
	if !strings.Contains(msg.Content, "stream interrupted") {
		t.Errorf("Content = %q, want the error text", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("message should no longer be streaming")
	}
}

func TestChatStream_HTTPErrorBeforeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "session gone"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.ChatStream(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestChatStream_MalformedLinesSkipped(t *testing.T) {
	lines := []string{
		`data: {"event":"RunStarted"}`,
		`data: {broken json`,
		`data: {"event":"RunResponse","content":"survives"}`,
		`data: {"event":"RunCompleted"}`,
	}
	server := httptest.NewServer(streamHandler(t, lines, false))
	defer server.Close()

	client := newTestClient(server)
	msg, err := client.ChatStream(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if msg.Content != "survives" {
		t.Errorf("Content = %q", msg.Content)
	}
}
