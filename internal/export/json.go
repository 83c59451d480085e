// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the complete conversation. Options do not filter it.
type JSONExporter struct {
	options *Options
	now     func() time.Time
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts, now: time.Now}
}

type jsonDocument struct {
	ID         model.ConversationID `json:"conversation_id"`
	Title      string               `json:"title"`
	CreatedAt  *time.Time           `json:"created_at,omitempty"`
	UpdatedAt  *time.Time           `json:"updated_at,omitempty"`
	ExportedAt time.Time            `json:"exported_at"`
	Generator  string               `json:"generator"`
	Messages   []*model.Message     `json:"messages"`
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, errNilConversation
	}

	doc := jsonDocument{
		ID:         conv.ID,
		Title:      conv.DisplayTitle(),
		ExportedAt: e.now().UTC(),
		Generator:  Generator,
		Messages:   conv.Messages,
	}
	if !conv.CreatedAt.IsZero() {
		doc.CreatedAt = &conv.CreatedAt
	}
	if !conv.UpdatedAt.IsZero() {
		doc.UpdatedAt = &conv.UpdatedAt
	}
	if doc.Messages == nil {
		doc.Messages = []*model.Message{}
	}

	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
