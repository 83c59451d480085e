// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for taxease.
//
// The view is a thin presentation layer over controller.Controller: it
// forwards input, renders the controller's View, and never mutates the
// transcript itself. Controller changes arrive through Subscribe and are
// turned into tea messages by a listener command.
//
// # Layout
//
//	header      health, conversation title
//	[sidebar]   transcript viewport
//	banner      last error, if any
//	input       question or /command
//	status bar  state, hints
//
// # Commands
//
// Lines starting with "/" are commands: /new, /resume, /list, /rename,
// /delete, /ask, /copy, /export, /sources, /reload, /help and /quit.
package chat
