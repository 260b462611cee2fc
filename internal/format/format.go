// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format renders conversation messages for terminal display.
//
// Assistant messages render as markdown with syntax-highlighted code
// blocks; user messages render as escaped plain text so a message that
// happens to contain markdown or control sequences displays literally.
package format

import (
	"os"
	"strings"
	"unicode"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/obelisk-tui/internal/model"
)

// DefaultWidth is used when the terminal width cannot be detected.
const DefaultWidth = 80

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter renders messages for the transcript.
type Formatter struct {
	width    int
	markdown bool
	renderer *glamour.TermRenderer
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithWidth fixes the render width instead of detecting it.
func WithWidth(width int) Option {
	return func(f *Formatter) {
		if width > 0 {
			f.width = width
		}
	}
}

// WithMarkdown toggles markdown rendering of assistant messages.
func WithMarkdown(enabled bool) Option {
	return func(f *Formatter) {
		f.markdown = enabled
	}
}

// New creates a formatter. Rendering degrades to plain text when the
// glamour renderer cannot initialize, rather than failing.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		width:    detectWidth(),
		markdown: true,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(f.width),
		)
		if err == nil {
			f.renderer = renderer
		}
	}

	return f
}

// Width returns the render width.
func (f *Formatter) Width() int {
	return f.width
}

// Message renders one message body according to its role.
func (f *Formatter) Message(msg *model.Message) string {
	if msg.Role == model.RoleAssistant && !msg.IsError {
		return f.Assistant(msg.DisplayContent())
	}
	return f.Plain(msg.DisplayContent())
}

// Assistant renders assistant content as markdown. Falls back to
// highlighted code blocks in otherwise plain text when markdown is off or
// the renderer failed to initialize.
func (f *Formatter) Assistant(content string) string {
	if f.renderer != nil {
		rendered, err := f.renderer.Render(content)
		if err == nil {
			return strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	return HighlightCodeBlocks(content) + "\n"
}

// Plain renders user (and error) content literally: line breaks survive,
// terminal control sequences do not.
func (f *Formatter) Plain(content string) string {
	return sanitize(content) + "\n"
}

// sanitize strips control characters that could corrupt the terminal,
// keeping newlines and tabs.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
			// Dropped. An escape sequence in user text must not style
			// or reposition the transcript.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

// detectWidth returns the terminal width, or DefaultWidth when stdout is
// not a terminal.
func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return DefaultWidth
}

// ColorProfile returns the terminal's detected color capability.
func ColorProfile() termenv.Profile {
	return termenv.ColorProfile()
}

// IsTTY reports whether stdout is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
