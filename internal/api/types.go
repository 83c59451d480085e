// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// LENIENT SCALARS
// =============================================================================

// Timestamp decodes the backend's ISO-8601 timestamps. Python's isoformat()
// omits the zone for naive datetimes, which time.Time rejects; those are
// read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// flexString accepts a JSON string or number. Citation pages and database
// ids arrive as either depending on the backend version.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is the body of POST /chat. A nil ConversationID is sent as
// null, which asks the backend to start a conversation itself.
type ChatRequest struct {
	Question       string  `json:"question"`
	ConversationID *string `json:"conversation_id"`
}

// Source is a citation as the backend serializes it.
type Source struct {
	BillName  string     `json:"bill_name"`
	Section   flexString `json:"section"`
	Page      flexString `json:"page"`
	Excerpt   string     `json:"excerpt,omitempty"`
	Relevance *float64   `json:"relevance,omitempty"`
}

// Citation converts the wire form into the domain type.
func (s Source) Citation() model.Citation {
	return model.Citation{
		BillName:  s.BillName,
		Section:   string(s.Section),
		Page:      string(s.Page),
		Excerpt:   s.Excerpt,
		Relevance: s.Relevance,
	}
}

func citations(sources []Source) []model.Citation {
	if len(sources) == 0 {
		return nil
	}
	out := make([]model.Citation, len(sources))
	for i, s := range sources {
		out[i] = s.Citation()
	}
	return out
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Answer                string               `json:"answer"`
	Sources               []Source             `json:"sources"`
	ConversationID        model.ConversationID `json:"conversation_id"`
	NeedsRetrieval        bool                 `json:"needs_retrieval"`
	MisconceptionDetected bool                 `json:"misconception_detected"`
	RelatedQuestions      []string             `json:"related_questions"`
}

// Message builds the assistant transcript entry for this response.
func (r *ChatResponse) Message() *model.Message {
	msg := model.NewAssistantMessage(r.Answer)
	msg.Sources = citations(r.Sources)
	msg.MisconceptionFlag = r.MisconceptionDetected
	if len(r.RelatedQuestions) > 0 {
		msg.FollowUps = append([]string(nil), r.RelatedQuestions...)
	}
	return msg
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

type createConversationResponse struct {
	ConversationID model.ConversationID `json:"conversation_id"`
	Message        string               `json:"message"`
}

type updateTitleRequest struct {
	Title string `json:"title"`
}

type conversationSummary struct {
	ID           model.ConversationID `json:"id"`
	Title        string               `json:"title"`
	CreatedAt    Timestamp            `json:"created_at"`
	UpdatedAt    Timestamp            `json:"updated_at"`
	MessageCount int                  `json:"message_count"`
}

func (s conversationSummary) toModel() model.ConversationSummary {
	return model.ConversationSummary{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt.Time,
		UpdatedAt:    s.UpdatedAt.Time,
		MessageCount: s.MessageCount,
	}
}

type conversationMessage struct {
	ID                    flexString `json:"id"`
	Role                  string     `json:"role"`
	Content               string     `json:"content"`
	CreatedAt             Timestamp  `json:"created_at"`
	Sources               []Source   `json:"sources"`
	RelatedQuestions      []string   `json:"related_questions"`
	MisconceptionDetected bool       `json:"misconception_detected"`
}

func (m conversationMessage) toModel() *model.Message {
	role := model.Role(strings.ToLower(m.Role))
	if role != model.RoleUser {
		role = model.RoleAssistant
	}
	msg := &model.Message{
		ID:                string(m.ID),
		Role:              role,
		Text:              m.Content,
		Timestamp:         m.CreatedAt.Time,
		Sources:           citations(m.Sources),
		MisconceptionFlag: m.MisconceptionDetected,
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if len(m.RelatedQuestions) > 0 {
		msg.FollowUps = append([]string(nil), m.RelatedQuestions...)
	}
	return msg
}

type conversationDetail struct {
	conversationSummary
	Messages []conversationMessage `json:"messages"`
}

func (d conversationDetail) toModel() *model.Conversation {
	conv := &model.Conversation{
		ConversationSummary: d.conversationSummary.toModel(),
		Messages:            make([]*model.Message, 0, len(d.Messages)),
	}
	for _, m := range d.Messages {
		conv.Messages = append(conv.Messages, m.toModel())
	}
	if conv.MessageCount == 0 {
		conv.MessageCount = len(conv.Messages)
	}
	return conv
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status                 string `json:"status"`
	Message                string `json:"message"`
	VectorstoreInitialized bool   `json:"vectorstore_initialized"`
	DocumentCount          int    `json:"document_count"`
}

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// User is the account attached to a token response.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UnmarshalJSON accepts numeric or string user ids.
func (u *User) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       flexString `json:"id"`
		Email    string     `json:"email"`
		FullName string     `json:"full_name"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	u.ID = string(wire.ID)
	u.Email = wire.Email
	u.FullName = wire.FullName
	return nil
}

// TokenResponse is returned by login, signup and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// ExpiresAt returns the access token's expiry relative to now.
func (t *TokenResponse) ExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

type messageResponse struct {
	Message string `json:"message"`
}
