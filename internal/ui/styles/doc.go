// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the taxease terminal UI.
//
// Colors are Lip Gloss AdaptiveColors so one palette serves dark and light
// terminals. Theme resolves the background once at startup ("auto") or
// honours an explicit "dark"/"light" setting.
package styles
