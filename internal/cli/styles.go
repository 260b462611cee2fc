// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for the plain-terminal commands.
//
// USABILITY: TTY detection for proper terminal handling
//
// Colors degrade automatically: piped output and NO_COLOR environments
// get plain text via the termenv profile detection in internal/format.

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/obelisk-tui/internal/format"
	"github.com/jeranaias/obelisk-tui/internal/ui/styles"
)

// init configures lipgloss to match the detected terminal capabilities.
func init() {
	lipgloss.SetColorProfile(format.ColorProfile())
}

var (
	// promptStyle renders the REPL input prompt.
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// welcomeStyle renders the banner line at REPL startup.
	welcomeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// infoStyle renders labels and secondary text.
	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// commandStyle renders values and command names.
	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// warningStyle renders recoverable problems.
	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// errorStyle renders failures.
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Rose)

	// headerStyle renders section headers in command output.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// assistantLabelStyle marks streamed assistant output in the REPL.
	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(styles.Purple)
)
