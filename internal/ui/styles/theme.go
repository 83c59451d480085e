// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds every style the chat view uses.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	FailedText     lipgloss.Style
	Timestamp      lipgloss.Style
	Notice         lipgloss.Style
	SourceHeader   lipgloss.Style
	SourceItem     lipgloss.Style
	SourceExcerpt  lipgloss.Style
	FollowUp       lipgloss.Style
	FollowUpKey    lipgloss.Style
	Placeholder    lipgloss.Style

	// Sidebar
	Sidebar         lipgloss.Style
	SidebarFocused  lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarActive   lipgloss.Style

	// Banner, input, status
	Banner      lipgloss.Style
	InputBorder lipgloss.Style
	InputPrompt lipgloss.Style
	StatusBar   lipgloss.Style
	StatusInfo  lipgloss.Style

	// Health indicators
	HealthOK       lipgloss.Style
	HealthChecking lipgloss.Style
	HealthDown     lipgloss.Style

	Spinner lipgloss.Style
}

// NewTheme builds a theme. mode is "auto", "dark" or "light"; "auto"
// queries the terminal background.
func NewTheme(mode string) *Theme {
	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the markdown style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(GreenDeep).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Green)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Green)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Indigo)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.FailedText = lipgloss.NewStyle().Foreground(Rose).Italic(true).PaddingLeft(2)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Notice = lipgloss.NewStyle().Foreground(Amber).PaddingLeft(2)
	t.SourceHeader = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true).PaddingLeft(2)
	t.SourceItem = lipgloss.NewStyle().Foreground(Cyan).PaddingLeft(4)
	t.SourceExcerpt = lipgloss.NewStyle().Foreground(TextMuted).Italic(true).PaddingLeft(6)
	t.FollowUp = lipgloss.NewStyle().Foreground(TextSecondary).PaddingLeft(2)
	t.FollowUpKey = lipgloss.NewStyle().Foreground(Indigo).Bold(true)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted).Italic(true).Padding(1, 2)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarFocused = t.Sidebar.Copy().BorderForeground(Indigo)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary).MarginBottom(1)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SidebarSelected = lipgloss.NewStyle().Foreground(TextInverse).Background(Indigo)
	t.SidebarActive = lipgloss.NewStyle().Foreground(Green).Bold(true)

	t.Banner = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseDeep).
		Bold(true).
		Padding(0, 1)
	t.InputBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Green).Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusInfo = lipgloss.NewStyle().Foreground(TextMuted)

	t.HealthOK = lipgloss.NewStyle().Foreground(Green)
	t.HealthChecking = lipgloss.NewStyle().Foreground(Amber)
	t.HealthDown = lipgloss.NewStyle().Foreground(Rose)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)
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
	LayoutNarrow LayoutMode = iota // < 60 columns, no sidebar
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
