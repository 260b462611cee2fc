// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the obelisk TUI.
//
// This file defines all Bubble Tea message types used by the chat interface:
//   - Streaming: stream start, token delivery, completion, and errors
//   - Sessions: session list, load, and create results
//   - Backend: health check results
//   - UI state: ticks and error display
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/jeranaias/obelisk-tui/internal/api"
	"github.com/jeranaias/obelisk-tui/internal/config"
	"github.com/jeranaias/obelisk-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that the backend accepted the chat request and the
// assistant response has started.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamTokenMsg delivers a new content fragment from the stream.
type StreamTokenMsg struct {
	MessageID string
	Token     string
}

// StreamCompleteMsg signals that streaming has finished. Message holds the
// finalized assistant message.
type StreamCompleteMsg struct {
	MessageID string
	Message   *model.Message
}

// StreamErrorMsg signals a failure during streaming. Partial holds whatever
// content arrived before the failure, nil when nothing did.
type StreamErrorMsg struct {
	MessageID string
	Partial   *model.Message
	Err       error
}

// StreamTickMsg drives the 30fps flush of the streaming buffer.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionsLoadedMsg delivers one page of the session list.
type SessionsLoadedMsg struct {
	Page *api.SessionPage
	Err  error
}

// SessionLoadedMsg delivers a fully loaded session document.
type SessionLoadedMsg struct {
	Doc *model.SessionDocument
	Err error
}

// SessionCreatedMsg confirms creation of a new session.
type SessionCreatedMsg struct {
	Doc *model.SessionDocument
	Err error
}

// =============================================================================
// BACKEND MESSAGES
// =============================================================================

// BackendStatusMsg reports the result of a backend health check.
type BackendStatusMsg struct {
	Healthy bool
	Err     error
}

// ConfigReloadedMsg carries a freshly loaded configuration after the
// config file changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays an error box above the input area.
type ErrorMsg struct {
	Title   string
	Message string
}

// ClearErrorMsg dismisses the error box.
type ClearErrorMsg struct{}
