// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"errors"

	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/session"
)

// State is the controller's position in the send lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingConversationCreation
	StateAwaitingResponse
	StateError
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConversationCreation:
		return "creating conversation"
	case StateAwaitingResponse:
		return "awaiting response"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a send is in progress.
func (s State) Busy() bool {
	return s == StateAwaitingConversationCreation || s == StateAwaitingResponse
}

// Banner and transcript texts shown to the user.
const (
	BannerNotReady     = "System is not ready. Please wait or refresh."
	BannerNetwork      = "Failed to connect to TaxEase AI."
	BannerServer       = "Failed to send message. Please try again."
	BannerUnauthorized = "Session expired. Please log in again."
	BannerResume       = "Could not retrieve previous messages."
	BannerDelete       = "Failed to delete conversation."
	BannerRename       = "Failed to rename conversation."

	FailureText = "Sorry, I encountered an error. Please try again."
)

// Rejections returned synchronously by Send. None of them change state.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrNotReady     = errors.New(BannerNotReady)
	ErrNoFollowUp   = errors.New("no such related question")
	ErrEmptyTitle   = errors.New("title is empty")
)

// View is everything a presentation layer needs to render.
type View struct {
	State         State
	Banner        string
	Session       session.State
	Conversations []model.ConversationSummary
}
