// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/ui/styles"
	"github.com/jeranaias/taxease-tui/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

// handleResize recomputes component sizes for the terminal.
func (m *Model) handleResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	m.ready = true
	m.theme.SetSize(width, height)
	m.help.Width = width

	// Header, input box (3 with border), status bar.
	chrome := 1 + 3 + 1
	if m.view.Banner != "" {
		chrome++
	}
	if m.showHelp {
		chrome += lineCount(m.help.View(m.keys))
	}
	bodyHeight := height - chrome
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	transcriptWidth := width
	if m.sidebarVisible() {
		m.sidebar.SetSize(sidebarWidth, bodyHeight)
		transcriptWidth = width - sidebarWidth - 1
	}

	m.viewport.Width = transcriptWidth
	m.viewport.Height = bodyHeight
	m.input.Width = width - 6
	m.refreshViewport()
}

// sidebarVisible reports whether the layout has room for the sidebar.
func (m *Model) sidebarVisible() bool {
	return m.showSidebar && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width - 2))
	if m.followBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Starting TaxEase..."
	}

	parts := []string{m.renderHeader()}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), " ", body)
	}
	parts = append(parts, body)

	if m.view.Banner != "" {
		parts = append(parts, m.theme.Banner.Width(m.width).Render(util.TruncateWidth(m.view.Banner, m.width-2)))
	}
	parts = append(parts, m.theme.InputBorder.Width(m.width-2).Render(m.input.View()))
	parts = append(parts, m.renderStatusBar())
	if m.showHelp {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	t := m.theme

	title := t.HeaderTitle.Render("TaxEase")
	conv := m.currentTitle()
	if m.view.Session.IsEmpty() && m.view.Session.ConversationID.IsZero() {
		conv = "new conversation"
	}

	left := title + t.HeaderMeta.Render("  "+conv)
	right := m.renderHealth()

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		left = title
		gap = m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
		if gap < 1 {
			gap = 1
		}
	}
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderHealth() string {
	t := m.theme
	switch m.health.State {
	case health.StateHealthy:
		label := "ready"
		if m.health.DocumentCount > 0 {
			label = fmt.Sprintf("ready - %d docs", m.health.DocumentCount)
		}
		return t.HealthOK.Render("● " + label)
	case health.StateUnreachable:
		return t.HealthDown.Render("● unreachable")
	default:
		return t.HealthChecking.Render(m.spinner.View() + " checking")
	}
}

func (m *Model) renderStatusBar() string {
	t := m.theme

	left := m.status
	switch {
	case m.working != "":
		left = m.spinner.View() + " " + m.working + "..."
	case left == "" && m.view.State.Busy():
		left = pendingText(m.view.State)
	case left == "" && m.health.State == health.StateUnreachable:
		left = "Backend unreachable at " + m.opts.BaseURL + ". C-r to retry."
	case left == "":
		left = fmt.Sprintf("%d messages", m.view.Session.MessageCount())
	}

	right := t.StatusInfo.Render("F1 help  /help commands")
	avail := m.width - lipgloss.Width(right) - 3
	left = util.TruncateWidth(left, avail)
	gap := avail - lipgloss.Width(left)
	if gap < 1 {
		gap = 1
	}
	return t.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
