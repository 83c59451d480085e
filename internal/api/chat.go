// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// SendMessage posts a question to the backend. An empty id sends
// conversation_id as null. The request is never retried; the caller sees
// exactly one outcome per call.
func (c *Client) SendMessage(ctx context.Context, id model.ConversationID, text string) (*ChatResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuestion
	}

	req := ChatRequest{Question: text}
	if !id.IsZero() {
		s := id.String()
		req.ConversationID = &s
	}

	var resp ChatResponse
	err := c.do(ctx, call{
		op:     "send message",
		method: http.MethodPost,
		path:   "/chat",
		body:   req,
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
