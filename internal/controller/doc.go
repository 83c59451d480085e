// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller implements the conversation lifecycle state machine.
//
// A Controller turns user intents (send, start over, resume, delete,
// rename) into backend calls and session mutations, and guarantees that the
// transcript stays ordered: one send at a time, responses merged in the
// order their questions were asked, and results that arrive after a reset
// dropped on the floor.
//
// # States
//
//	Idle --Send--> AwaitingConversationCreation   (no conversation yet)
//	Idle --Send--> AwaitingResponse               (conversation exists)
//	AwaitingConversationCreation --created--> AwaitingResponse
//	AwaitingConversationCreation --failed--> Error --> Idle
//	AwaitingResponse --reply--> Idle
//	AwaitingResponse --failed--> Error --> Idle
//	any --NewConversation--> Idle
//
// # Failures
//
// Send never returns transport errors. A failed send appends a failed
// assistant entry to the transcript and sets the banner; Send itself only
// returns the rejection sentinels ErrEmptyMessage, ErrSendInFlight and
// ErrNotReady, all of which leave the transcript untouched.
//
// # Usage
//
//	ctrl := controller.New(controller.Options{Backend: client, Gate: gate})
//	defer ctrl.Close()
//	unsubscribe := ctrl.Subscribe(func(v controller.View) { render(v) })
//	if err := ctrl.Send(ctx, "Will PAYE change?"); errors.Is(err, controller.ErrSendInFlight) {
//	    // ignore the keypress
//	}
package controller
