// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the obelisk TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar        lipgloss.Style
	StatusConnected  lipgloss.Style
	StatusStreaming  lipgloss.Style
	StatusError      lipgloss.Style
	ShortcutKey      lipgloss.Style
	ShortcutDesc     lipgloss.Style

	// ==========================================================================
	// SPINNER AND STREAMING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
	ThinkingTime lipgloss.Style

	// ==========================================================================
	// ERROR BOX STYLES
	// ==========================================================================

	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style

	// ==========================================================================
	// SESSION LIST STYLES
	// ==========================================================================

	SessionList         lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionID           lipgloss.Style
	SessionTitle        lipgloss.Style
	SessionMeta         lipgloss.Style

	// ==========================================================================
	// WELCOME SCREEN STYLES
	// ==========================================================================

	WelcomeBox     lipgloss.Style
	WelcomeLogo    lipgloss.Style
	WelcomeVersion lipgloss.Style
	WelcomeInfo    lipgloss.Style

	// ==========================================================================
	// ACCESSIBILITY: Status indicator styles with shapes and high contrast
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	hasTrueColor := colorProfile == termenv.TrueColor
	isDark := termenv.HasDarkBackground()

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: hasTrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// App container
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 2).
		Align(lipgloss.Center)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 2).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Background(AssistantBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 2).
		MarginRight(4)

	t.SystemBubble = lipgloss.NewStyle().
		Foreground(SystemBubbleFg).
		Background(SystemBubbleBg).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(SystemBubbleBorder).
		Padding(0, 2).
		Align(lipgloss.Center)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusConnected = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.StatusStreaming = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Spinner and streaming
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.ThinkingTime = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Error boxes
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Rose).
		Background(RoseDeep).
		Padding(1, 2)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(TextPrimary)

	// Session list
	t.SessionList = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.SessionItemSelected = lipgloss.NewStyle().
		Background(Purple).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)

	t.SessionID = lipgloss.NewStyle().
		Foreground(TextMuted).
		Width(12)

	t.SessionTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Welcome screen
	t.WelcomeBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Purple).
		Padding(2, 4).
		Align(lipgloss.Center)

	t.WelcomeLogo = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.WelcomeVersion = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.WelcomeInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Accessibility status styles
	// ACCESSIBILITY: Use together with StatusIndicators symbols
	t.SuccessStyle = lipgloss.NewStyle().
		Foreground(SuccessHighContrast).
		Bold(true)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorHighContrast).
		Bold(true)

	t.WarningStyle = lipgloss.NewStyle().
		Foreground(WarningHighContrast).
		Bold(true)

	t.InfoStyle = lipgloss.NewStyle().
		Foreground(InfoHighContrast).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
