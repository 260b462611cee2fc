// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/jeranaias/obelisk-tui/internal/model"
	"github.com/jeranaias/obelisk-tui/internal/state"
	"github.com/jeranaias/obelisk-tui/internal/stream"
)

// =============================================================================
// STREAM ERROR
// =============================================================================

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // Content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CHAT REQUEST
// =============================================================================

// ChatRequest is the body of the streaming chat endpoint.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Stream    bool   `json:"stream"`

	// ConfigOverride carries only the generation settings that differ
	// from the backend's defaults, or is omitted entirely.
	ConfigOverride *state.Override `json:"config_override,omitempty"`
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// streamReadSize is the transport read buffer. Chunk boundaries are
// meaningless to the decoder, so the size only affects syscall count.
const streamReadSize = 4096

// ChatStream sends a user message and assembles the streamed response into
// a finalized assistant message. sink receives progress notifications as
// fragments arrive; it may be nil.
//
// Context cancellation stops consumption quietly: the in-flight message is
// finalized with whatever content accumulated and returned without error.
// A transport failure mid-stream finalizes the in-flight message as
// errored and returns a StreamError preserving the partial content.
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest, sink stream.Sink) (*model.Message, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	chatReq.Stream = true
	bodyBytes, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "obelisk-tui/1.0")

	c.logRequest(req)
	resp, err := c.streamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	return c.processStream(ctx, resp.Body, sink)
}

// processStream pumps body chunks through the frame decoder and event
// interpreter until the stream ends one way or another.
func (c *Client) processStream(ctx context.Context, body io.Reader, sink stream.Sink) (*model.Message, error) {
	rec := &recordingSink{inner: sink}
	asm := stream.NewAssembler(rec)
	in := stream.NewInterpreter(asm)
	dec := stream.NewFrameDecoder(func(e *stream.DecodeError) {
		log.Printf("chat: %v", e)
	})

	buf := make([]byte, streamReadSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				in.Handle(ev)
			}
		}

		if in.State().Terminal() {
			return rec.last, nil
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if ctx.Err() != nil || errors.Is(readErr, context.Canceled) {
				// Cancellation keeps the partial content and raises
				// nothing; the caller asked for the stop.
				in.Reset()
				return rec.last, nil
			}
			// Capture the partial before Abort replaces the message
			// content with the error text.
			partial := rec.partial(asm)
			in.Abort("stream interrupted: " + readErr.Error())
			return rec.last, &StreamError{Partial: partial, Err: readErr}
		}
	}

	// EOF without a terminal event: flush the carry and finalize with
	// whatever arrived.
	if ev, ok := dec.Close(); ok {
		in.Handle(ev)
	}
	if !in.State().Terminal() {
		in.Reset()
	}
	return rec.last, nil
}

// recordingSink forwards notifications and remembers the last finalized
// message so ChatStream can return it.
type recordingSink struct {
	inner stream.Sink
	last  *model.Message
}

func (r *recordingSink) MessageStarted(m *model.Message) {
	if r.inner != nil {
		r.inner.MessageStarted(m)
	}
}

func (r *recordingSink) MessageUpdated(m *model.Message) {
	if r.inner != nil {
		r.inner.MessageUpdated(m)
	}
}

func (r *recordingSink) MessageCompleted(m *model.Message) {
	r.last = m
	if r.inner != nil {
		r.inner.MessageCompleted(m)
	}
}

func (r *recordingSink) partial(asm *stream.Assembler) string {
	if cur := asm.Current(); cur != nil {
		return cur.DisplayContent()
	}
	if r.last != nil {
		return r.last.DisplayContent()
	}
	return ""
}
