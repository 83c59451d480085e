// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders answers with glamour and caches the result per
// message and width. Transcript messages never change once appended.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// setWidth rebuilds the renderer when the wrap width changes.
func (r *markdownRenderer) setWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.renderer != nil {
		return
	}
	r.width = width
	r.cache = make(map[string]string)
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.renderer = nil
		return
	}
	r.renderer = tr
}

// render returns msg's text as styled markdown, falling back to plain text.
func (r *markdownRenderer) render(msg *model.Message) string {
	if out, ok := r.cache[msg.ID]; ok {
		return out
	}
	out := msg.Text
	if r.renderer != nil {
		if rendered, err := r.renderer.Render(msg.Text); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	r.cache[msg.ID] = out
	return out
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every entry, then the pending indicator.
func (m *Model) renderTranscript(width int) string {
	t := m.theme
	sess := m.view.Session
	if sess.IsEmpty() && !m.view.State.Busy() {
		return t.Placeholder.Render(welcomeText)
	}

	wrap := width
	if m.opts.WordWrap > 0 && m.opts.WordWrap < wrap {
		wrap = m.opts.WordWrap
	}
	m.renderer.setWidth(wrap)

	last := sess.LastAssistant()
	var b strings.Builder
	for i, msg := range sess.Transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, wrap, msg == last))
	}

	if m.view.State.Busy() {
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(t.StatusInfo.Render(pendingText(m.view.State)))
	}
	return b.String()
}

func (m *Model) renderMessage(msg *model.Message, wrap int, latest bool) string {
	t := m.theme
	var b strings.Builder

	label := t.UserLabel.Render(msg.Role.DisplayName())
	if msg.IsAssistant() {
		label = t.AssistantLabel.Render(msg.Role.DisplayName())
	}
	b.WriteString(label)
	b.WriteString(" ")
	b.WriteString(t.Timestamp.Render(msg.Timestamp.Format("15:04")))
	b.WriteString("\n")

	switch {
	case msg.Failed:
		b.WriteString(t.FailedText.Width(wrap).Render(msg.Text))
		return b.String()
	case msg.IsUser():
		b.WriteString(t.UserText.Width(wrap).Render(msg.Text))
		return b.String()
	}

	if msg.MisconceptionFlag {
		b.WriteString(t.Notice.Render("! This question may rest on a common misconception about the reforms."))
		b.WriteString("\n")
	}
	b.WriteString(m.renderer.render(msg))

	if m.showSources && msg.HasSources() {
		b.WriteString("\n")
		b.WriteString(renderSources(t, msg.Sources, wrap))
	}
	if latest && msg.HasFollowUps() {
		b.WriteString("\n")
		b.WriteString(renderFollowUps(t, msg.FollowUps))
	}
	return b.String()
}

func renderSources(t *styles.Theme, sources []model.Citation, wrap int) string {
	var b strings.Builder
	b.WriteString(t.SourceHeader.Render("Sources"))
	for i, src := range sources {
		line := fmt.Sprintf("%d. %s", i+1, src.Label())
		if pct := src.RelevancePercent(); pct >= 0 {
			line += fmt.Sprintf("  (%d%% match)", pct)
		}
		b.WriteString("\n")
		b.WriteString(t.SourceItem.Render(line))
		if src.Excerpt != "" {
			b.WriteString("\n")
			b.WriteString(t.SourceExcerpt.Width(wrap).Render(src.Excerpt))
		}
	}
	return b.String()
}

func renderFollowUps(t *styles.Theme, followUps []string) string {
	var b strings.Builder
	b.WriteString(t.SourceHeader.Render("Related questions"))
	for i, q := range followUps {
		b.WriteString("\n")
		key := fmt.Sprintf("[%d]", i+1)
		if i < 5 {
			key = fmt.Sprintf("[M-%d]", i+1)
		}
		b.WriteString(t.FollowUp.Render(t.FollowUpKey.Render(key) + " " + q))
	}
	return b.String()
}

func pendingText(s controller.State) string {
	if s == controller.StateAwaitingConversationCreation {
		return "Starting a conversation..."
	}
	return "TaxEase AI is thinking..."
}

const welcomeText = `Welcome to TaxEase.

Ask anything about the Nigerian tax reform bills. Answers cite the
bill, section and page they come from.

Type /help for commands.`

// lineCount returns the rendered height of s.
func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return lipgloss.Height(s)
}
