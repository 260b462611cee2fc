// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the obelisk TUI.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/obelisk-tui/internal/model"
	"github.com/jeranaias/obelisk-tui/internal/util"
)

// =============================================================================
// TOP LEVEL LAYOUT
// =============================================================================

// renderChat composes the full chat view: header, transcript viewport,
// error box or streaming indicator, input area, and status bar.
func (m Model) renderChat() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.lastError != nil {
		b.WriteString(m.renderErrorBox())
		b.WriteString("\n")
	} else if m.state == StateStreaming {
		b.WriteString(m.renderStreamingIndicator())
		b.WriteString("\n")
	}

	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("obelisk")

	session := "no session"
	if m.sessionID != "" {
		session = util.TruncateWidth(m.sessionID, 20)
	}
	subtitle := m.theme.HeaderSubtitle.Render(session)

	line := title + "  " + subtitle
	if m.width > 0 {
		return m.theme.StatusBar.Width(m.width).Render(line)
	}
	return line
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// updateViewport rerenders the transcript into the viewport, skipping the
// update entirely when the rendered content has not changed.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	content := m.renderMessages()
	if !m.viewportOptimizer.ShouldUpdate(content) {
		return
	}

	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
	m.viewportOptimizer.MarkClean()
}

func (m *Model) renderMessages() string {
	if len(m.history) == 0 && m.streamed == "" && m.state != StateStreaming {
		return m.renderEmptyState()
	}

	var b strings.Builder
	for _, msg := range m.history {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.state == StateStreaming && m.streamed != "" {
		b.WriteString(m.renderStreamingContent())
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderMessage(msg *model.Message) string {
	label := m.roleLabel(msg)
	body := m.formatter.Message(msg)
	body = strings.TrimRight(body, "\n")

	switch {
	case msg.IsError:
		return label + "\n" + m.theme.StatusError.Render(body)
	case msg.Role == model.RoleUser:
		return label + "\n" + m.bubbleRender(m.theme.UserBubble, body)
	case msg.Role == model.RoleAssistant:
		return label + "\n" + m.bubbleRender(m.theme.AssistantBubble, body)
	default:
		return label + "\n" + m.bubbleRender(m.theme.SystemBubble, body)
	}
}

func (m *Model) roleLabel(msg *model.Message) string {
	name := msg.Role.DisplayName()
	ts := ""
	if m.cfg != nil && m.cfg.UI.ShowTimestamps && !msg.Timestamp.IsZero() {
		ts = "  " + m.theme.SessionMeta.Render(msg.Timestamp.Format("15:04:05"))
	}

	switch msg.Role {
	case model.RoleUser:
		return m.theme.InputPrompt.Render(name) + ts
	case model.RoleAssistant:
		return m.theme.HeaderTitle.Render(name) + ts
	default:
		return m.theme.HeaderSubtitle.Render(name) + ts
	}
}

// bubbleRender applies a bubble style capped to the viewport width.
func (m *Model) bubbleRender(style lipgloss.Style, body string) string {
	maxWidth := m.viewport.Width - 8
	if maxWidth < 20 {
		maxWidth = 20
	}
	return style.MaxWidth(maxWidth).Render(body)
}

// renderStreamingContent shows the partial assistant response as plain text.
// Markdown rendering waits for completion; rendering half a code fence per
// frame produces garbage.
func (m *Model) renderStreamingContent() string {
	label := m.theme.HeaderTitle.Render(model.RoleAssistant.DisplayName())
	body := m.formatter.Plain(m.streamed)
	body = strings.TrimRight(body, "\n")
	return label + "\n" + m.bubbleRender(m.theme.AssistantBubble, body)
}

func (m *Model) renderEmptyState() string {
	lines := []string{
		m.theme.WelcomeLogo.Render("obelisk"),
		"",
		m.theme.WelcomeInfo.Render("Type a message and press Enter to start chatting."),
		m.theme.WelcomeInfo.Render("Press Ctrl+G for keyboard shortcuts."),
	}
	return m.theme.WelcomeBox.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// STREAMING INDICATOR
// =============================================================================

func (m Model) renderStreamingIndicator() string {
	elapsed := time.Since(m.streamStart).Round(time.Second)
	return fmt.Sprintf(" %s %s %s",
		m.spinner.View(),
		m.theme.ThinkingText.Render("Streaming..."),
		m.theme.ThinkingTime.Render(elapsed.String()),
	)
}

// =============================================================================
// ERROR BOX
// =============================================================================

func (m Model) renderErrorBox() string {
	title := m.theme.ErrorTitle.Render(m.lastError.Title)
	msg := m.theme.ErrorMessage.Render(m.lastError.Message)
	hint := m.theme.ShortcutDesc.Render("Esc to dismiss")
	return m.theme.ErrorBox.Render(title + "\n" + msg + "\n" + hint)
}

// =============================================================================
// INPUT AND STATUS BAR
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.state == StateStreaming:
		left = m.theme.StatusStreaming.Render("streaming")
	case m.healthy:
		left = m.theme.StatusConnected.Render("connected")
	default:
		left = m.theme.StatusError.Render("offline")
	}

	if m.statusMsg != "" {
		left += "  " + m.theme.ShortcutDesc.Render(m.statusMsg)
	}

	var shortcuts []string
	for _, binding := range m.keyMap.ShortHelp() {
		h := binding.Help()
		shortcuts = append(shortcuts,
			m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(shortcuts, "  ")

	line := left + "  " + right
	if m.width > 0 {
		return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).Render(line)
	}
	return m.theme.StatusBar.Render(line)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, group := range m.keyMap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %s  %s\n",
				m.theme.ShortcutKey.Render(util.PadRight(h.Key, 12)),
				m.theme.ShortcutDesc.Render(h.Desc)))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.theme.ShortcutDesc.Render("Press any key to close"))
	return m.theme.WelcomeBox.Render(b.String())
}
