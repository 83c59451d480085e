// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit        key.Binding
	Quit          key.Binding
	NewChat       key.Binding
	ToggleSidebar key.Binding
	FocusSidebar  key.Binding
	Up            key.Binding
	Down          key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Copy          key.Binding
	Recheck       key.Binding
	Dismiss       key.Binding
	Help          key.Binding
	FollowUp      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send / open"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "toggle sidebar"),
		),
		FocusSidebar: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "focus sidebar"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy answer"),
		),
		Recheck: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "recheck backend"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		FollowUp: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5"),
			key.WithHelp("M-1..5", "ask related question"),
		),
	}
}

// ShortHelp returns bindings for the compact help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewChat, k.FocusSidebar, k.Help, k.Quit}
}

// FullHelp returns all bindings grouped by column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.FollowUp, k.NewChat, k.Copy},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.FocusSidebar, k.ToggleSidebar, k.Recheck, k.Dismiss},
		{k.Help, k.Quit},
	}
}

// followUpIndex maps alt+1..alt+5 to a zero-based index.
func followUpIndex(keyStr string) (int, bool) {
	if len(keyStr) == 5 && keyStr[:4] == "alt+" && keyStr[4] >= '1' && keyStr[4] <= '5' {
		return int(keyStr[4] - '1'), true
	}
	return 0, false
}
