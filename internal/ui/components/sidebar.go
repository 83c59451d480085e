// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/ui/styles"
	"github.com/jeranaias/taxease-tui/internal/util"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// Sidebar lists stored conversations, newest first, with a cursor.
type Sidebar struct {
	theme *styles.Theme

	items   []model.ConversationSummary
	cursor  int
	offset  int
	active  model.ConversationID
	focused bool

	width  int
	height int
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme}
}

// SetItems replaces the list, keeping the cursor on the same conversation
// when it is still present.
func (s *Sidebar) SetItems(items []model.ConversationSummary) {
	var selected model.ConversationID
	if cur, ok := s.Selected(); ok {
		selected = cur.ID
	}
	s.items = items
	s.cursor = 0
	for i, it := range items {
		if it.ID == selected {
			s.cursor = i
			break
		}
	}
	s.clamp()
}

// Items returns the listed conversations.
func (s *Sidebar) Items() []model.ConversationSummary {
	return s.items
}

// SetActive marks the conversation currently loaded in the transcript.
func (s *Sidebar) SetActive(id model.ConversationID) {
	s.active = id
}

// SetFocused toggles keyboard focus.
func (s *Sidebar) SetFocused(focused bool) {
	s.focused = focused
}

// Focused reports whether the sidebar has keyboard focus.
func (s *Sidebar) Focused() bool {
	return s.focused
}

// SetSize sets the outer dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.clamp()
}

// MoveUp moves the cursor up one entry.
func (s *Sidebar) MoveUp() {
	s.cursor--
	s.clamp()
}

// MoveDown moves the cursor down one entry.
func (s *Sidebar) MoveDown() {
	s.cursor++
	s.clamp()
}

// Selected returns the conversation under the cursor.
func (s *Sidebar) Selected() (model.ConversationSummary, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return model.ConversationSummary{}, false
	}
	return s.items[s.cursor], true
}

func (s *Sidebar) visibleRows() int {
	// title line plus its margin
	rows := s.height - 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (s *Sidebar) clamp() {
	if s.cursor >= len(s.items) {
		s.cursor = len(s.items) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	rows := s.visibleRows()
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	t := s.theme
	inner := s.width - 2
	if inner < 4 {
		inner = 4
	}

	var b strings.Builder
	b.WriteString(t.SidebarTitle.Render("Conversations"))
	b.WriteString("\n")

	if len(s.items) == 0 {
		b.WriteString(t.StatusInfo.Render("none yet"))
	}

	end := s.offset + s.visibleRows()
	if end > len(s.items) {
		end = len(s.items)
	}
	for i := s.offset; i < end; i++ {
		it := s.items[i]
		marker := "  "
		if it.ID == s.active {
			marker = "> "
		}
		line := util.PadRight(util.TruncateWidth(marker+it.DisplayTitle(), inner), inner)
		switch {
		case s.focused && i == s.cursor:
			line = t.SidebarSelected.Render(line)
		case it.ID == s.active:
			line = t.SidebarActive.Render(line)
		default:
			line = t.SidebarItem.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	style := t.Sidebar
	if s.focused {
		style = t.SidebarFocused
	}
	return style.
		Width(inner).
		Height(s.height).
		MaxHeight(s.height).
		Render(lipgloss.NewStyle().MaxWidth(inner).Render(b.String()))
}
