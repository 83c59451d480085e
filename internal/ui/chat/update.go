// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/util"
)

// sidebarWidth is the sidebar's outer width in wide layouts.
const sidebarWidth = 32

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case viewMsg:
		m.applyView(msg.view)
		return m, m.listen()

	case startupMsg:
		m.health = msg.report
		if msg.listErr != nil {
			m.log.Warn().Err(msg.listErr).Msg("could not load conversation list")
			m.status = "Could not load conversations."
		}
		m.refreshViewport()
		return m, nil

	case healthMsg:
		m.health = msg.report
		if msg.report.State == health.StateHealthy {
			m.ctrl.DismissBanner()
			m.status = "Backend is ready."
		} else {
			m.status = "Backend is still unreachable."
		}
		return m, nil

	case sendDoneMsg:
		return m, m.handleSendDone(msg)

	case opDoneMsg:
		m.working = ""
		if msg.err != nil {
			m.log.Debug().Err(msg.err).Str("op", msg.op).Msg("command failed")
			if errors.Is(msg.err, controller.ErrEmptyTitle) {
				m.status = "Usage: /rename <title>"
			} else if msg.op == "refresh" {
				m.status = "Could not load conversations."
			}
			return m, nil
		}
		if msg.op == "resume" {
			m.followBottom = true
		}
		m.status = msg.info
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Answer copied to clipboard."
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("export failed")
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.log.Info().Str("path", msg.path).Msg("conversation exported")
			m.status = "Exported to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.view.State.Busy() {
			m.refreshViewport()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes global and focus-dependent keys. handled is false
// when the key should reach the text input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.handleResize(m.width, m.height)
		return nil, true

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewConversation()
		m.status = "Started a new conversation."
		return nil, true

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.sidebar.SetFocused(false)
			m.input.Focus()
		}
		m.handleResize(m.width, m.height)
		return nil, true

	case key.Matches(msg, m.keys.FocusSidebar):
		if !m.sidebarVisible() {
			m.showSidebar = true
			m.handleResize(m.width, m.height)
		}
		focused := !m.sidebar.Focused()
		m.sidebar.SetFocused(focused)
		if focused {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return nil, true

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastResponse(), true

	case key.Matches(msg, m.keys.Recheck):
		return m.recheck(), true

	case key.Matches(msg, m.keys.Dismiss):
		if m.sidebar.Focused() {
			m.sidebar.SetFocused(false)
			m.input.Focus()
		} else {
			m.status = ""
			m.ctrl.DismissBanner()
		}
		return nil, true

	case key.Matches(msg, m.keys.FollowUp):
		if i, ok := followUpIndex(msg.String()); ok {
			return m.askFollowUp(i), true
		}
	}

	if m.sidebar.Focused() {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.sidebar.MoveUp()
		case key.Matches(msg, m.keys.Down):
			m.sidebar.MoveDown()
		case key.Matches(msg, m.keys.Submit):
			if sel, ok := m.sidebar.Selected(); ok {
				m.sidebar.SetFocused(false)
				m.input.Focus()
				return m.resume(sel), true
			}
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit(), true
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		m.followBottom = m.viewport.AtBottom()
		return nil, true
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		m.followBottom = m.viewport.AtBottom()
		return nil, true
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		m.followBottom = m.viewport.AtBottom()
		return nil, true
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		m.followBottom = m.viewport.AtBottom()
		return nil, true
	}
	return nil, false
}

// handleSubmit sends the input line or runs it as a command.
func (m *Model) handleSubmit() tea.Cmd {
	raw := m.input.Value()
	if util.IsBlank(raw) {
		return nil
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "/") {
		m.input.Reset()
		return m.runCommand(raw)
	}
	if m.view.State.Busy() {
		m.status = "Still waiting for the previous answer."
		return nil
	}
	return m.submit(raw, func() error {
		return m.ctrl.Send(m.ctx, raw)
	})
}

// submit clears the input and runs send in the background. The text is
// restored if the controller rejects it.
func (m *Model) submit(text string, send func() error) tea.Cmd {
	m.input.Reset()
	m.status = ""
	m.followBottom = true
	return func() tea.Msg {
		return sendDoneMsg{text: text, err: send()}
	}
}

func (m *Model) handleSendDone(msg sendDoneMsg) tea.Cmd {
	switch {
	case msg.err == nil:
		return nil
	case errors.Is(msg.err, controller.ErrNotReady):
		m.status = "Backend is not ready. Press C-r to check again."
	case errors.Is(msg.err, controller.ErrSendInFlight):
		m.status = "Still waiting for the previous answer."
	case errors.Is(msg.err, controller.ErrNoFollowUp):
		m.status = "No such related question."
		return nil
	default:
		m.status = msg.err.Error()
	}
	if m.input.Value() == "" {
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
	}
	return nil
}

// applyView adopts a controller change and re-renders.
func (m *Model) applyView(v controller.View) {
	prevID := m.view.Session.ConversationID
	m.view = v
	m.sidebar.SetItems(v.Conversations)
	m.sidebar.SetActive(v.Session.ConversationID)
	if v.Session.ConversationID != prevID {
		m.followBottom = true
	}
	m.handleResize(m.width, m.height)
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.Close()
	return tea.Quit
}
