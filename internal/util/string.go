// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the obelisk-tui application.
package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: Rune-aware truncation preserves multi-byte characters.
// These functions handle strings correctly regardless of character encoding,
// preventing mid-character truncation that would corrupt UTF-8 strings.

// TruncateRunes truncates a string to a maximum number of runes (characters).
// This is safe for UTF-8 strings as it counts characters, not bytes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateWidth truncates a string to a maximum display width, accounting
// for double-width characters (CJK) that take 2 terminal columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth > 3 {
		return runewidth.Truncate(s, maxWidth, "...")
	}
	return runewidth.Truncate(s, maxWidth, "")
}

// StringWidth returns the display width of a string in terminal columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads a string with spaces to the given display width.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// RuneLen returns the number of runes (characters) in a string.
// This is safer than len() for UTF-8 strings.
func RuneLen(s string) int {
	return len([]rune(s))
}

// FirstLine returns the first line of a string, without its line ending.
func FirstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimRight(s[:idx], "\r")
	}
	return s
}
