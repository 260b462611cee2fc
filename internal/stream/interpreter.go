// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"log"

	"github.com/jeranaias/obelisk-tui/internal/model"
)

// =============================================================================
// INTERPRETER STATE
// =============================================================================

// State is the interpreter's lifecycle position for one response stream.
type State int

const (
	// StateIdle means no stream has started yet.
	StateIdle State = iota

	// StateStreaming means a message is being assembled.
	StateStreaming

	// StateCompleted means the stream finished normally. Terminal.
	StateCompleted

	// StateErrored means the stream finished with an error. Terminal.
	StateErrored
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "invalid"
	}
}

// Terminal reports whether the stream has finished, normally or not.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// =============================================================================
// INTERPRETER
// =============================================================================

// Interpreter drives an Assembler from the event sequence of one response
// stream. It tolerates real backend behavior: deltas before an explicit
// start event open the stream implicitly, duplicate terminal events are
// ignored, and anything after a terminal event is dropped.
type Interpreter struct {
	state State
	asm   *Assembler
}

// NewInterpreter returns an interpreter in StateIdle driving asm.
func NewInterpreter(asm *Assembler) *Interpreter {
	return &Interpreter{state: StateIdle, asm: asm}
}

// State returns the current lifecycle state.
func (in *Interpreter) State() State {
	return in.state
}

// Reset returns the interpreter to StateIdle for the next response stream.
// Any in-flight message is finalized with its accumulated content first.
func (in *Interpreter) Reset() {
	if in.state == StateStreaming {
		in.asm.Complete("")
	}
	in.state = StateIdle
}

// Abort finalizes any in-flight message as errored and moves the stream to
// StateErrored. The transport layer calls this when the connection fails
// mid-stream; errText becomes the message's user-visible content. Returns
// the failed message, or nil when nothing was in flight.
func (in *Interpreter) Abort(errText string) *model.Message {
	if in.state.Terminal() {
		return nil
	}
	var msg *model.Message
	if in.state == StateStreaming {
		msg = in.asm.Fail(errText)
	}
	in.state = StateErrored
	return msg
}

// Handle applies one event. Keepalive and unknown events never change
// state; unknown ones are logged and skipped so newer backends stay
// compatible with older clients.
func (in *Interpreter) Handle(ev Event) {
	if in.state.Terminal() {
		return
	}

	switch ev.Kind {
	case KindKeepalive:
		// Heartbeat only.

	case KindUnknown:
		log.Printf("stream: skipping unknown event %q", ev.Name)

	case KindRunStarted:
		if in.state == StateStreaming {
			log.Printf("stream: run started while already streaming, restarting")
		}
		in.asm.Start()
		in.state = StateStreaming

	case KindDelta:
		// A delta before the start event still opens the stream; some
		// backend versions skip the explicit start.
		if in.state == StateIdle {
			in.asm.Start()
			in.state = StateStreaming
		}
		in.asm.AppendDelta(ev.Content)

	case KindCompleted:
		if in.state == StateIdle {
			// Completion with nothing streamed: an empty response.
			in.asm.Start()
		}
		in.asm.Complete(ev.Content)
		in.state = StateCompleted

	case KindError:
		errText := ev.Err
		if errText == "" {
			errText = "the backend reported an error"
		}
		if in.state == StateIdle {
			in.asm.Start()
		}
		in.asm.Fail(errText)
		in.state = StateErrored

	case KindStreamEnd:
		// The transport terminator normally follows the terminal event.
		// If it arrives mid-stream the backend died without closing the
		// run; finalize with what we have.
		if in.state == StateStreaming {
			log.Printf("stream: terminator before completion, keeping partial content")
			in.asm.Complete("")
			in.state = StateCompleted
		}
	}
}
