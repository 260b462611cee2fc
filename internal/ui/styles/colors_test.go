// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the obelisk TUI.
package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// COLOR DEFINITION TESTS
// =============================================================================

func TestAdaptiveColorsDefined(t *testing.T) {
	colors := []struct {
		name  string
		color lipgloss.AdaptiveColor
	}{
		{"Purple", Purple},
		{"Cyan", Cyan},
		{"Emerald", Emerald},
		{"Rose", Rose},
		{"RoseDeep", RoseDeep},
		{"Amber", Amber},
		{"Surface", Surface},
		{"SurfaceDim", SurfaceDim},
		{"Overlay", Overlay},
		{"TextPrimary", TextPrimary},
		{"TextSecondary", TextSecondary},
		{"TextMuted", TextMuted},
		{"TextInverse", TextInverse},
	}

	for _, c := range colors {
		if c.color.Light == "" || c.color.Dark == "" {
			t.Errorf("%s should define both light and dark variants", c.name)
		}
		if !strings.HasPrefix(c.color.Light, "#") || !strings.HasPrefix(c.color.Dark, "#") {
			t.Errorf("%s should use hex color values", c.name)
		}
	}
}

func TestMessageBubbleColors(t *testing.T) {
	colors := []struct {
		name  string
		color lipgloss.AdaptiveColor
	}{
		{"UserBubbleBg", UserBubbleBg},
		{"UserBubbleFg", UserBubbleFg},
		{"UserBubbleBorder", UserBubbleBorder},
		{"AssistantBubbleBg", AssistantBubbleBg},
		{"AssistantBubbleFg", AssistantBubbleFg},
		{"AssistantBubbleBorder", AssistantBubbleBorder},
		{"SystemBubbleBg", SystemBubbleBg},
		{"SystemBubbleFg", SystemBubbleFg},
		{"SystemBubbleBorder", SystemBubbleBorder},
	}

	for _, c := range colors {
		if c.color.Light == "" || c.color.Dark == "" {
			t.Errorf("%s should define both light and dark variants", c.name)
		}
	}
}

// =============================================================================
// STATUS INDICATOR TESTS
// =============================================================================

func TestStatusIndicators(t *testing.T) {
	indicators := []struct {
		name  string
		value string
	}{
		{"Success", StatusIndicators.Success},
		{"Error", StatusIndicators.Error},
		{"Warning", StatusIndicators.Warning},
		{"Info", StatusIndicators.Info},
		{"Pending", StatusIndicators.Pending},
		{"Active", StatusIndicators.Active},
	}

	for _, in := range indicators {
		if in.value == "" {
			t.Errorf("StatusIndicators.%s should not be empty", in.name)
		}
		// ACCESSIBILITY: indicators must stay ASCII-only
		for _, r := range in.value {
			if r > 127 {
				t.Errorf("StatusIndicators.%s contains non-ASCII character %q", in.name, r)
			}
		}
	}
}

func TestStatusIndicatorsUniqueness(t *testing.T) {
	seen := map[string]string{}
	for name, value := range map[string]string{
		"Success": StatusIndicators.Success,
		"Error":   StatusIndicators.Error,
		"Warning": StatusIndicators.Warning,
		"Info":    StatusIndicators.Info,
		"Pending": StatusIndicators.Pending,
		"Active":  StatusIndicators.Active,
	} {
		if other, ok := seen[value]; ok {
			t.Errorf("indicator %q shared by %s and %s", value, name, other)
		}
		seen[value] = name
	}
}

// =============================================================================
// RENDER FUNCTION TESTS
// =============================================================================

func TestRenderSuccess(t *testing.T) {
	result := RenderSuccess("operation complete")
	if !strings.Contains(result, "operation complete") {
		t.Error("RenderSuccess should contain the message")
	}
	if !strings.Contains(result, StatusIndicators.Success) {
		t.Error("RenderSuccess should contain the success indicator")
	}
}

func TestRenderError(t *testing.T) {
	result := RenderError("stream failed")
	if !strings.Contains(result, "stream failed") {
		t.Error("RenderError should contain the message")
	}
	if !strings.Contains(result, StatusIndicators.Error) {
		t.Error("RenderError should contain the error indicator")
	}
}

func TestRenderWarning(t *testing.T) {
	result := RenderWarning("reconnecting")
	if !strings.Contains(result, "reconnecting") {
		t.Error("RenderWarning should contain the message")
	}
	if !strings.Contains(result, StatusIndicators.Warning) {
		t.Error("RenderWarning should contain the warning indicator")
	}
}

func TestRenderInfo(t *testing.T) {
	result := RenderInfo("session loaded")
	if !strings.Contains(result, "session loaded") {
		t.Error("RenderInfo should contain the message")
	}
	if !strings.Contains(result, StatusIndicators.Info) {
		t.Error("RenderInfo should contain the info indicator")
	}
}

func TestRenderStatus(t *testing.T) {
	success := RenderStatus(true, "done")
	if !strings.Contains(success, StatusIndicators.Success) {
		t.Error("RenderStatus(true) should use the success indicator")
	}

	failure := RenderStatus(false, "done")
	if !strings.Contains(failure, StatusIndicators.Error) {
		t.Error("RenderStatus(false) should use the error indicator")
	}
}

func TestRenderFunctionsEmptyString(t *testing.T) {
	for name, fn := range map[string]func(string) string{
		"RenderSuccess": RenderSuccess,
		"RenderError":   RenderError,
		"RenderWarning": RenderWarning,
		"RenderInfo":    RenderInfo,
	} {
		result := fn("")
		if result == "" {
			t.Errorf("%s should still render the indicator for an empty message", name)
		}
	}
}
