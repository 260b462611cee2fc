// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the obelisk TUI.
package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	theme := NewTheme()

	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	// Verify styles are initialized by rendering a test string
	renderedApp := theme.App.Render("test")
	if renderedApp == "" {
		t.Error("NewTheme() should initialize App style")
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme()

	// An uninitialized style would just return the input unchanged,
	// so render a probe string through each one.
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"HeaderTitle", theme.HeaderTitle},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"SystemBubble", theme.SystemBubble},
		{"InputContainer", theme.InputContainer},
		{"InputPrompt", theme.InputPrompt},
		{"StatusBar", theme.StatusBar},
		{"StatusConnected", theme.StatusConnected},
		{"StatusStreaming", theme.StatusStreaming},
		{"StatusError", theme.StatusError},
		{"Spinner", theme.Spinner},
		{"ErrorBox", theme.ErrorBox},
		{"SessionList", theme.SessionList},
		{"WelcomeBox", theme.WelcomeBox},
	}

	for _, s := range styles {
		rendered := s.style.Render("test")
		if rendered == "" {
			t.Errorf("%s style should be initialized", s.name)
		}
	}
}

// =============================================================================
// THEME SIZE TESTS
// =============================================================================

func TestThemeSetSize(t *testing.T) {
	theme := NewTheme()

	tests := []struct {
		width  int
		height int
	}{
		{80, 24},
		{120, 40},
		{200, 60},
		{40, 10},
	}

	for _, tc := range tests {
		theme.SetSize(tc.width, tc.height)
		if theme.Width != tc.width {
			t.Errorf("SetSize(%d, %d) Width = %d, want %d", tc.width, tc.height, theme.Width, tc.width)
		}
		if theme.Height != tc.height {
			t.Errorf("SetSize(%d, %d) Height = %d, want %d", tc.width, tc.height, theme.Height, tc.height)
		}
	}
}

func TestThemeGetLayoutMode(t *testing.T) {
	theme := NewTheme()

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{80, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{150, LayoutWide},
		{200, LayoutWide},
	}

	for _, tc := range tests {
		theme.SetSize(tc.width, 24)
		got := theme.GetLayoutMode()
		if got != tc.want {
			t.Errorf("GetLayoutMode() with width %d = %v, want %v", tc.width, got, tc.want)
		}
	}
}

// =============================================================================
// ACCESSIBILITY STYLE TESTS
// =============================================================================

func TestThemeAccessibilityStyles(t *testing.T) {
	theme := NewTheme()

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"SuccessStyle", theme.SuccessStyle},
		{"ErrorStyle", theme.ErrorStyle},
		{"WarningStyle", theme.WarningStyle},
		{"InfoStyle", theme.InfoStyle},
	}

	for _, s := range styles {
		if !s.style.GetBold() {
			t.Errorf("%s should be bold for high contrast", s.name)
		}
	}
}

func TestThemeMultipleInitialization(t *testing.T) {
	// Re-running initStyles must be safe, the config watcher can
	// trigger a theme rebuild at any time.
	theme := NewTheme()
	theme.initStyles()
	theme.initStyles()

	if theme.Header.Render("x") == "" {
		t.Error("Header style should survive re-initialization")
	}
}
