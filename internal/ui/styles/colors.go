// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Green - Brand color, healthy status, user prompt
var Green = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}

// GreenDeep - Header background
var GreenDeep = lipgloss.AdaptiveColor{Light: "#D1FAE5", Dark: "#064E3B"}

// Indigo - Assistant accent, selections
var Indigo = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#A5B4FC"}

// Cyan - Citations and links
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors and failed entries
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// RoseDeep - Error banner background
var RoseDeep = lipgloss.AdaptiveColor{Light: "#FFE4E6", Dark: "#881337"}

// Amber - Warnings, misconception notices, checking state
var Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#313244"}
var Overlay = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6C7086"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
