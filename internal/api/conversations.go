// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// DefaultListLimit matches the backend's default page size.
const DefaultListLimit = 50

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// CreateConversation asks the backend for a fresh conversation id.
func (c *Client) CreateConversation(ctx context.Context) (model.ConversationID, error) {
	var resp createConversationResponse
	err := c.do(ctx, call{
		op:     "create conversation",
		method: http.MethodPost,
		path:   "/conversations/new",
		body:   struct{}{},
		out:    &resp,
	})
	if err != nil {
		return "", err
	}
	if resp.ConversationID.IsZero() {
		return "", &Error{Kind: KindServer, Op: "create conversation", Detail: "response carried no conversation_id"}
	}
	return resp.ConversationID, nil
}

// ListConversations returns the first page of the user's conversations,
// most recently updated first.
func (c *Client) ListConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	return c.ListConversationsPage(ctx, DefaultListLimit, 0)
}

// ListConversationsPage returns one page of conversations.
func (c *Client) ListConversationsPage(ctx context.Context, limit, offset int) ([]model.ConversationSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))

	var resp []conversationSummary
	err := c.do(ctx, call{
		op:     "list conversations",
		method: http.MethodGet,
		path:   "/conversations?" + q.Encode(),
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.ConversationSummary, 0, len(resp))
	for _, s := range resp {
		out = append(out, s.toModel())
	}
	return out, nil
}

// FetchConversation loads a conversation with its full transcript.
func (c *Client) FetchConversation(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	if id.IsZero() {
		return nil, ErrNoConversation
	}

	var resp conversationDetail
	err := c.do(ctx, call{
		op:     "fetch conversation",
		method: http.MethodGet,
		path:   "/conversations/" + url.PathEscape(id.String()),
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}

	conv := resp.toModel()
	if conv.ID.IsZero() {
		conv.ID = id
	}
	return conv, nil
}

// UpdateTitle renames a conversation.
func (c *Client) UpdateTitle(ctx context.Context, id model.ConversationID, title string) (*model.ConversationSummary, error) {
	if id.IsZero() {
		return nil, ErrNoConversation
	}

	var resp conversationSummary
	err := c.do(ctx, call{
		op:     "rename conversation",
		method: http.MethodPatch,
		path:   "/conversations/" + url.PathEscape(id.String()),
		body:   updateTitleRequest{Title: title},
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}

	summary := resp.toModel()
	if summary.ID.IsZero() {
		summary.ID = id
	}
	if summary.Title == "" {
		summary.Title = title
	}
	return &summary, nil
}

// DeleteConversation removes a conversation server-side.
func (c *Client) DeleteConversation(ctx context.Context, id model.ConversationID) error {
	if id.IsZero() {
		return ErrNoConversation
	}
	return c.do(ctx, call{
		op:     "delete conversation",
		method: http.MethodDelete,
		path:   "/conversations/" + url.PathEscape(id.String()),
	})
}
