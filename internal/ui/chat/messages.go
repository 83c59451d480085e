// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/health"
)

// =============================================================================
// TEA MESSAGES
// =============================================================================

// viewMsg carries a controller change.
type viewMsg struct {
	view controller.View
}

// startupMsg reports the startup fan-out: health probe and list fetch.
type startupMsg struct {
	report  health.Report
	listErr error
}

// healthMsg reports a manual recheck.
type healthMsg struct {
	report health.Report
}

// sendDoneMsg is returned when Controller.Send returns.
type sendDoneMsg struct {
	text string
	err  error
}

// opDoneMsg is returned by conversation commands (resume, delete, rename,
// refresh). info is shown in the status bar on success.
type opDoneMsg struct {
	op   string
	info string
	err  error
}

// copyDoneMsg is returned after a clipboard write.
type copyDoneMsg struct {
	err error
}

// exportDoneMsg is returned after an export.
type exportDoneMsg struct {
	path string
	err  error
}
