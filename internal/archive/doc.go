// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive keeps a local SQLite copy of every transcript the client
// has seen, so conversations can be read and exported offline.
//
// The archive is append-only per message id: recording the same message
// twice (for example when a resumed conversation is reloaded) is a no-op.
//
// # Usage
//
//	a, err := archive.Open(filepath.Join(home, "archive.db"))
//	defer a.Close()
//	ctrl := controller.New(controller.Options{Backend: client, Recorder: a})
//	convs, err := a.List(ctx)
package archive
