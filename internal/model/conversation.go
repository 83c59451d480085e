// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"
)

// MaxTitleLength is the number of runes kept when a title is derived from a question.
const MaxTitleLength = 60

// DefaultTitle is shown for conversations the backend has not titled yet.
const DefaultTitle = "New Conversation"

// =============================================================================
// CONVERSATION ID
// =============================================================================

// ConversationID is the opaque server-assigned conversation identifier.
// The zero value means no conversation has been created yet.
type ConversationID string

// IsZero reports whether no conversation is associated.
func (id ConversationID) IsZero() bool {
	return id == ""
}

// String returns the raw identifier.
func (id ConversationID) String() string {
	return string(id)
}

// Short returns the first 8 characters, for display.
func (id ConversationID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// =============================================================================
// CONVERSATION TYPES
// =============================================================================

// ConversationSummary is one entry of the server-side conversation list.
type ConversationSummary struct {
	ID           ConversationID `json:"id"`
	Title        string         `json:"title"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty"`
	MessageCount int            `json:"message_count,omitempty"`
}

// DisplayTitle returns the title or DefaultTitle when it is blank.
func (s ConversationSummary) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return DefaultTitle
}

// Conversation is a fully loaded conversation with its transcript.
type Conversation struct {
	ConversationSummary
	Messages []*Message `json:"messages"`
}

// LastAssistant returns the most recent non-failed assistant message, or nil.
func (c *Conversation) LastAssistant() *Message {
	return LastAssistant(c.Messages)
}

// =============================================================================
// TRANSCRIPT HELPERS
// =============================================================================

// LastAssistant returns the most recent non-failed assistant message in msgs.
func LastAssistant(msgs []*Message) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsAssistant() && !msgs[i].Failed {
			return msgs[i]
		}
	}
	return nil
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []*Message) []*Message {
	if msgs == nil {
		return nil
	}
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// TitleFromText derives a conversation title from the first question asked.
// Newlines become spaces, the result is cut to MaxTitleLength runes and an
// ellipsis marks truncation.
func TitleFromText(text string) string {
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	runes := []rune(flat)
	if len(runes) <= MaxTitleLength {
		return strings.TrimSpace(flat)
	}
	return strings.TrimSpace(string(runes[:MaxTitleLength])) + "…"
}
