// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// taxease.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ...
//	}
//
// # Commands
//
//   - ask: one question, answer printed as markdown
//   - chat: line-based REPL with history
//   - conversations: list, show, rename, delete, export, search
//   - login, signup, logout, whoami: account management
//   - status: backend health, account and archive summary
//   - config: show, get, set, path, keys
//
// Commands that print data accept --json and emit a JSONResponse envelope.
package cli
