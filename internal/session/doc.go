// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the client-side state of one chat surface.
//
// A Manager owns the active conversation id, the ordered transcript and the
// single-flight pending flag. It performs no I/O and is safe for concurrent
// use; the controller drives it and presentation layers render Snapshots.
//
// # Generations
//
// Every Reset or ReplaceTranscript bumps a generation counter. A send
// captures the generation when it begins (Begin) and passes it back when
// its result arrives; if the counter moved in between, the result belongs
// to a discarded session and the mutators ignore it.
//
// # Usage
//
//	m := session.NewManager()
//	gen, _, ok := m.Begin("Is VAT changing?")
//	if !ok {
//	    return ErrSendInFlight
//	}
//	// ... network call ...
//	m.AppendAssistant(gen, reply)
//	m.Finish(gen)
package session
