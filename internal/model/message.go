// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "TaxEase AI"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation points at the bill passage an answer was grounded on.
type Citation struct {
	BillName string `json:"bill_name"`
	Section  string `json:"section"`
	Page     string `json:"page"`
	Excerpt  string `json:"excerpt,omitempty"`

	// Relevance is the retrieval distance (lower is closer), nil when omitted.
	Relevance *float64 `json:"relevance,omitempty"`
}

// Label returns a short reference like "Nigeria Tax Bill, s.146, p.112".
func (c Citation) Label() string {
	var b strings.Builder
	b.WriteString(c.BillName)
	if c.Section != "" {
		b.WriteString(", s.")
		b.WriteString(c.Section)
	}
	if c.Page != "" {
		b.WriteString(", p.")
		b.WriteString(c.Page)
	}
	return b.String()
}

// RelevancePercent converts the retrieval distance into a 0-100 match score.
// It returns -1 when the backend sent no positive distance.
func (c Citation) RelevancePercent() int {
	if c.Relevance == nil || *c.Relevance <= 0 {
		return -1
	}
	score := 1 - *c.Relevance
	if score < 0 {
		score = 0
	}
	return int(score*100 + 0.5)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry of a transcript.
//
// Messages are append-only once they are in a transcript; the Failed flag is
// the only field that may be set after insertion.
type Message struct {
	// Identity (local only, never sent to the backend)
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	Text string `json:"text"`

	// Assistant-only payload
	Sources           []Citation `json:"sources,omitempty"`
	MisconceptionFlag bool       `json:"misconception_detected,omitempty"`
	FollowUps         []string   `json:"related_questions,omitempty"`

	// Failed marks a local error entry, or a user message whose send failed.
	Failed bool `json:"failed,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, text string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) *Message {
	return NewMessage(RoleUser, text)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(text string) *Message {
	return NewMessage(RoleAssistant, text)
}

// NewFailureMessage creates the assistant entry recorded when a send fails.
func NewFailureMessage(text string) *Message {
	msg := NewMessage(RoleAssistant, text)
	msg.Failed = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser returns true if this is a user message.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasSources returns true if the message carries citations.
func (m *Message) HasSources() bool {
	return len(m.Sources) > 0
}

// HasFollowUps returns true if the message suggests related questions.
func (m *Message) HasFollowUps() bool {
	return len(m.FollowUps) > 0
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Sources != nil {
		c.Sources = make([]Citation, len(m.Sources))
		for i, s := range m.Sources {
			c.Sources[i] = s
			if s.Relevance != nil {
				r := *s.Relevance
				c.Sources[i].Relevance = &r
			}
		}
	}
	if m.FollowUps != nil {
		c.FollowUps = append([]string(nil), m.FollowUps...)
	}
	return &c
}

// Preview returns the first maxLen runes of the text on a single line.
func (m *Message) Preview(maxLen int) string {
	text := strings.Join(strings.Fields(m.Text), " ")
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
