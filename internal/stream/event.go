// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// EVENT KIND
// =============================================================================

// Kind classifies a decoded stream event. All downstream logic consumes
// this tagged union; raw payload shapes never leave the decode boundary.
type Kind int

const (
	// KindUnknown is any event name outside the recognized alias groups.
	KindUnknown Kind = iota

	// KindRunStarted opens a stream: a new assistant message begins.
	KindRunStarted

	// KindDelta carries an incremental content fragment.
	KindDelta

	// KindCompleted closes a stream normally, optionally with final text
	// that overrides the accumulated fragments.
	KindCompleted

	// KindError closes a stream with a backend-reported error.
	KindError

	// KindKeepalive is a heartbeat; it never changes state.
	KindKeepalive

	// KindStreamEnd is the transport-level "[DONE]" terminator line.
	KindStreamEnd
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindRunStarted:
		return "run_started"
	case KindDelta:
		return "delta"
	case KindCompleted:
		return "completed"
	case KindError:
		return "error"
	case KindKeepalive:
		return "keepalive"
	case KindStreamEnd:
		return "stream_end"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENT TYPE
// =============================================================================

// Event is one normalized event from the stream.
type Event struct {
	Kind Kind

	// Name is the raw event name as sent by the backend, kept for
	// diagnostics on unknown events.
	Name string

	// Content is the event's text payload: the fragment for deltas, the
	// optional final text for completions.
	Content string

	// Err is the error text for error events, if the backend provided one.
	Err string
}

// wireEvent is the raw on-the-wire shape. Content sometimes arrives nested
// under data.content instead of at the top level; normalization folds both
// into Event.Content.
type wireEvent struct {
	Event   string `json:"event"`
	Content string `json:"content"`
	Data    struct {
		Content string `json:"content"`
	} `json:"data"`
	Error string `json:"error"`
}

// kindAliases groups the case-insensitive event names the backend has been
// observed to emit for each kind.
var kindAliases = map[string]Kind{
	"runstarted":   KindRunStarted,
	"runresponse":  KindDelta,
	"content":      KindDelta,
	"delta":        KindDelta,
	"runcompleted": KindCompleted,
	"completed":    KindCompleted,
	"runerror":     KindError,
	"error":        KindError,
	"keepalive":    KindKeepalive,
}

// normalizeEvent converts a raw decoded payload into the event union.
func normalizeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, err
	}

	ev := Event{
		Kind: KindUnknown,
		Name: w.Event,
		Err:  w.Error,
	}

	if kind, ok := kindAliases[strings.ToLower(w.Event)]; ok {
		ev.Kind = kind
	}

	// Fold the nested shape into the flat one.
	ev.Content = w.Content
	if ev.Content == "" {
		ev.Content = w.Data.Content
	}

	return ev, nil
}
