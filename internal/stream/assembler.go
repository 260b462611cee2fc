// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"log"

	"github.com/jeranaias/obelisk-tui/internal/model"
)

// =============================================================================
// SINK
// =============================================================================

// Sink receives assembly notifications. The UI layer implements this to
// repaint as fragments arrive; tests implement it to observe transitions.
type Sink interface {
	// MessageStarted fires when a new assistant message begins streaming.
	MessageStarted(msg *model.Message)

	// MessageUpdated fires after each appended fragment.
	MessageUpdated(msg *model.Message)

	// MessageCompleted fires once when the message reaches its final
	// content, whether it completed normally or failed.
	MessageCompleted(msg *model.Message)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) MessageStarted(*model.Message)   {}
func (NopSink) MessageUpdated(*model.Message)   {}
func (NopSink) MessageCompleted(*model.Message) {}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler builds at most one assistant message at a time from streamed
// fragments. Fragment, completion, and failure calls outside an active
// message are no-ops, so a lagging or duplicated stream cannot corrupt
// already-finalized messages.
type Assembler struct {
	current *model.Message
	sink    Sink
}

// NewAssembler returns an assembler reporting to sink. A nil sink behaves
// like NopSink.
func NewAssembler(sink Sink) *Assembler {
	if sink == nil {
		sink = NopSink{}
	}
	return &Assembler{sink: sink}
}

// Start begins a new streaming message and returns it. If a message is
// already in flight it is finalized with whatever content accumulated
// before the new one begins.
func (a *Assembler) Start() *model.Message {
	if a.current != nil {
		log.Printf("stream: new message started while %s still streaming, finalizing previous", a.current.ID)
		a.finalize("")
	}

	msg := model.NewStreamingMessage()
	a.current = msg
	a.sink.MessageStarted(msg)
	return msg
}

// AppendDelta appends a content fragment to the in-flight message. Without
// one, the fragment is dropped.
func (a *Assembler) AppendDelta(fragment string) {
	if a.current == nil || fragment == "" {
		return
	}
	a.current.AppendToken(fragment)
	a.sink.MessageUpdated(a.current)
}

// Complete finalizes the in-flight message and returns it. A non-empty
// finalText replaces the accumulated fragments; otherwise the accumulation
// stands. Without an in-flight message this is a no-op returning nil, which
// also makes duplicate completion events harmless.
func (a *Assembler) Complete(finalText string) *model.Message {
	if a.current == nil {
		return nil
	}
	return a.finalize(finalText)
}

// Fail marks the in-flight message as errored with the given text and
// returns it. Without an in-flight message this is a no-op returning nil.
func (a *Assembler) Fail(errText string) *model.Message {
	if a.current == nil {
		return nil
	}
	a.current.FailStream(errText)
	done := a.current
	a.current = nil
	a.sink.MessageCompleted(done)
	return done
}

// Current returns the in-flight message, or nil.
func (a *Assembler) Current() *model.Message {
	return a.current
}

// Streaming reports whether a message is in flight.
func (a *Assembler) Streaming() bool {
	return a.current != nil
}

func (a *Assembler) finalize(finalText string) *model.Message {
	a.current.FinalizeStream(finalText)
	done := a.current
	a.current = nil
	a.sink.MessageCompleted(done)
	return done
}
