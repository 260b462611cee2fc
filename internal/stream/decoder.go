// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"strings"
)

// =============================================================================
// DECODE ERROR
// =============================================================================

// DecodeError reports a single line that could not be decoded. It is
// recoverable: the decoder skips the line and continues with the next one.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: bad line %q: %v", truncateLine(e.Line), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// truncateLine keeps error messages bounded when the backend sends a very
// long malformed line.
func truncateLine(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// =============================================================================
// FRAME DECODER
// =============================================================================

// sse terminator payload emitted by the backend after the final event.
const doneSentinel = "[DONE]"

// FrameDecoder converts raw transport chunks into events. Chunk boundaries
// carry no meaning: a line may arrive split across any number of chunks, so
// the decoder buffers the trailing partial line between Feed calls.
//
// Lines are framed either as SSE "data: {json}" or as a bare JSON object.
// Blank lines and comment lines (leading ':') separate frames and are
// ignored. A malformed line is reported through the error callback and
// skipped; decoding continues.
type FrameDecoder struct {
	carry strings.Builder

	// onError receives recoverable per-line decode failures. Nil means
	// failures are silently dropped.
	onError func(*DecodeError)
}

// NewFrameDecoder returns a decoder that reports per-line failures to
// onError. onError may be nil.
func NewFrameDecoder(onError func(*DecodeError)) *FrameDecoder {
	return &FrameDecoder{onError: onError}
}

// Feed consumes one transport chunk and returns the events completed by it.
// An empty chunk is a no-op.
func (d *FrameDecoder) Feed(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}

	d.carry.Write(chunk)
	buf := d.carry.String()

	var events []Event
	for {
		idx := strings.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := buf[:idx]
		buf = buf[idx+1:]

		if ev, ok := d.decodeLine(line); ok {
			events = append(events, ev)
		}
	}

	d.carry.Reset()
	d.carry.WriteString(buf)
	return events
}

// Close flushes the trailing partial line, if any. A final line without a
// newline still decodes; leftover garbage is reported like any other bad
// line. The returned event is valid only when ok is true.
func (d *FrameDecoder) Close() (Event, bool) {
	rest := d.carry.String()
	d.carry.Reset()
	if strings.TrimSpace(rest) == "" {
		return Event{}, false
	}
	return d.decodeLine(rest)
}

// decodeLine parses one complete line. ok is false for ignorable lines
// (blank, comment) and for malformed ones, which are routed to onError.
func (d *FrameDecoder) decodeLine(line string) (Event, bool) {
	trimmed := strings.TrimRight(line, "\r")
	stripped := strings.TrimSpace(trimmed)

	if stripped == "" || strings.HasPrefix(stripped, ":") {
		return Event{}, false
	}

	payload := stripped
	if rest, ok := strings.CutPrefix(trimmed, "data:"); ok {
		payload = strings.TrimSpace(rest)
		if payload == "" {
			return Event{}, false
		}
	} else if !strings.HasPrefix(stripped, "{") {
		d.fail(line, fmt.Errorf("no data prefix and not a JSON object"))
		return Event{}, false
	}

	if payload == doneSentinel {
		return Event{Kind: KindStreamEnd, Name: doneSentinel}, true
	}

	ev, err := normalizeEvent([]byte(payload))
	if err != nil {
		d.fail(line, err)
		return Event{}, false
	}
	return ev, true
}

func (d *FrameDecoder) fail(line string, err error) {
	if d.onError != nil {
		d.onError(&DecodeError{Line: line, Err: err})
	}
}
