// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the obelisk TUI.

This package defines the color palette and the Theme type used throughout
the terminal interface. All colors use Lip Gloss AdaptiveColor so the same
palette works on light and dark terminals without configuration.

# Color System (colors.go)

Primary accents:

  - Purple - assistant messages and selections
  - Cyan - brand color, commands, user highlights
  - Emerald - success and connected states
  - Amber - warnings and in-flight streams
  - Rose - errors and failed streams

Message bubbles, the status bar, and the session list use semantic tokens
(UserBubbleBg, AssistantBubbleFg, ...) rather than raw colors so a future
theme swap touches one file.

# Theme (theme.go)

Theme holds every configured lipgloss.Style plus the detected terminal
capabilities (color profile, dark background). Construct one with NewTheme
at program start and share it across views:

	theme := styles.NewTheme()
	header := theme.Header.Render("obelisk")

SetSize feeds terminal dimensions into the theme for responsive layouts;
GetLayoutMode buckets the width into narrow/medium/wide.

# Accessibility

Status rendering helpers (RenderSuccess, RenderError, ...) pair high
contrast colors with ASCII shape indicators ([OK], [X], [!], [i]) so state
is readable without color vision.
*/
package styles
