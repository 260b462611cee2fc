// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat view for the obelisk TUI.

The package is built on Bubble Tea. Model holds the conversation history,
the bubbles viewport/textinput/spinner components, and the streaming state
for the in-flight assistant response. StreamRunner bridges the api package
to the Bubble Tea event loop: it runs ChatStream in a goroutine and
translates stream sink callbacks into program messages.

# Streaming pipeline

Tokens arrive faster than a terminal can usefully redraw, so the view never
renders per token. StreamTokenMsg payloads land in a StreamingBuffer, and a
30fps StreamTickMsg drains the buffer into the visible message. A
ViewportOptimizer hashes rendered content and skips redraws whose content
has not changed.

	submit -> StreamRunner.Run -> StreamStartMsg
	                           -> StreamTokenMsg (buffered)
	                           -> StreamCompleteMsg | StreamErrorMsg

Esc cancels the in-flight stream; the partial response stays in the
transcript.
*/
package chat
