// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the obelisk TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, info, commands, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states, connected indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors, failed streams, danger states
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// RoseDeep - Darker rose for error box backgrounds
var RoseDeep = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#881337"}

// Amber - Warnings, reconnecting, caution states
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// SurfaceDim - Slightly darker/lighter surface for headers/footers
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay - Borders, separators, subtle backgrounds
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints, timestamps, very subtle text
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// TextInverse - Text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// MESSAGE BUBBLE COLORS
// =============================================================================

// User message bubble - Blue tones
var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1D4ED8"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"}
var UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}

// Assistant message bubble - Soft purple/violet tones (muted, not saturated)
var AssistantBubbleBg = lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#3B3655"}
var AssistantBubbleFg = lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"}
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}

// System message bubble - Amber/yellow tones
var SystemBubbleBg = lipgloss.AdaptiveColor{Light: "#FEF3C7", Dark: "#78350F"}
var SystemBubbleFg = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FEF3C7"}
var SystemBubbleBorder = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}

// =============================================================================
// ACCESSIBILITY: Shapes and high contrast for colorblind users
// =============================================================================

// StatusIndicatorSet contains text/shape indicators for status states.
// These symbols provide visual cues beyond color for colorblind accessibility.
type StatusIndicatorSet struct {
	Success string // Checkmark for success states
	Error   string // X mark for error states
	Warning string // Warning triangle for caution states
	Info    string // Info circle for informational states
	Pending string // Clock for pending/loading states
	Active  string // Dot for active/online states
}

// StatusIndicators provides accessible shape/text indicators alongside colors.
// ACCESSIBILITY: ASCII-only indicators for maximum compatibility and colorblind users.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}

// High contrast success - Bright green with bold, works for most color blindness types
var SuccessHighContrast = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"}

// High contrast error - Bright red with bold, distinct from green even for colorblind
var ErrorHighContrast = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}

// High contrast warning - Bright amber/orange, deuteranopia-friendly
var WarningHighContrast = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}

// High contrast info - Bright blue, distinct from red/green spectrum
var InfoHighContrast = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}

// =============================================================================
// ACCESSIBILITY: Helper functions for rendering accessible status messages
// =============================================================================

// RenderSuccess renders a success message with checkmark indicator and high contrast green.
// ACCESSIBILITY: Includes shape indicator for colorblind users.
func RenderSuccess(message string) string {
	style := lipgloss.NewStyle().
		Foreground(SuccessHighContrast).
		Bold(true)
	return style.Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with X mark indicator and high contrast red.
// ACCESSIBILITY: Includes shape indicator for colorblind users.
func RenderError(message string) string {
	style := lipgloss.NewStyle().
		Foreground(ErrorHighContrast).
		Bold(true)
	return style.Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with warning triangle and high contrast amber.
// ACCESSIBILITY: Includes shape indicator for colorblind users.
func RenderWarning(message string) string {
	style := lipgloss.NewStyle().
		Foreground(WarningHighContrast).
		Bold(true)
	return style.Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with info circle and high contrast blue.
// ACCESSIBILITY: Includes shape indicator for colorblind users.
func RenderInfo(message string) string {
	style := lipgloss.NewStyle().
		Foreground(InfoHighContrast).
		Bold(true)
	return style.Render(StatusIndicators.Info + " " + message)
}

// RenderStatus renders a status message based on success/failure with appropriate indicator.
// ACCESSIBILITY: Uses shapes and high contrast colors for colorblind users.
func RenderStatus(success bool, message string) string {
	if success {
		return RenderSuccess(message)
	}
	return RenderError(message)
}
