// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"strings"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation discards the local session and returns to Idle at once.
// Unless PreserveOnNew is set, the previous conversation is deleted on the
// server in the background; that delete never blocks and its failure is
// only logged. A send in flight is abandoned and its result discarded.
func (c *Controller) NewConversation() {
	prev := c.session.ResetWith(c.idleLocked)

	if prev.IsZero() || c.opts.PreserveOnNew {
		return
	}
	c.deleteInBackground(prev)
}

// idleLocked returns the controller to Idle with no banner. It runs inside
// a session reset so that no send can begin in between.
func (c *Controller) idleLocked() {
	c.mu.Lock()
	c.state = StateIdle
	c.banner = ""
	c.mu.Unlock()
}

// deleteInBackground deletes id server-side without blocking the caller.
func (c *Controller) deleteInBackground(id model.ConversationID) {
	c.goBackground(func(ctx context.Context) {
		if err := c.backend.DeleteConversation(ctx, id); err != nil {
			c.log.Debug().Err(err).Str("conversation_id", id.String()).Msg("best-effort delete failed")
			return
		}
		c.dropSummary(id)
		c.forget(ctx, id)
	})
}

// Resume loads a stored conversation and makes it active. On failure the
// banner is set and the current session is left as it was.
func (c *Controller) Resume(ctx context.Context, id model.ConversationID) error {
	conv, err := c.backend.FetchConversation(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Str("conversation_id", id.String()).Msg("resume failed")
		c.setBanner(BannerResume)
		return err
	}

	if conv.ID.IsZero() {
		conv.ID = id
	}
	c.session.ReplaceTranscriptWith(conv.ID, conv.Messages, c.idleLocked)

	// Server messages carry no ids, so the archived copy is replaced
	// wholesale rather than appended to.
	if c.recorder != nil {
		if err := c.recorder.Replace(ctx, conv.ID, conv.Messages...); err != nil {
			c.log.Warn().Err(err).Msg("archive write failed")
		}
		if conv.Title != "" {
			if err := c.recorder.Rename(ctx, conv.ID, conv.Title); err != nil {
				c.log.Debug().Err(err).Msg("archive rename failed")
			}
		}
	}
	return nil
}

// RefreshConversations reloads the cached conversation list.
func (c *Controller) RefreshConversations(ctx context.Context) error {
	list, err := c.backend.ListConversations(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conversations = list
	c.mu.Unlock()
	c.notify()
	return nil
}

// Delete removes a conversation on explicit user request. Unlike the
// best-effort delete of NewConversation, failure is surfaced. Deleting the
// active conversation also resets the session.
func (c *Controller) Delete(ctx context.Context, id model.ConversationID) error {
	if err := c.backend.DeleteConversation(ctx, id); err != nil {
		c.log.Warn().Err(err).Str("conversation_id", id.String()).Msg("delete failed")
		c.setBanner(BannerDelete)
		return err
	}

	c.dropSummary(id)
	c.forget(ctx, id)

	if c.session.ConversationID() == id {
		c.session.ResetWith(c.idleLocked)
	}

	if err := c.RefreshConversations(ctx); err != nil {
		c.log.Debug().Err(err).Msg("conversation list refresh failed")
	}
	return nil
}

// Rename sets a conversation's title.
func (c *Controller) Rename(ctx context.Context, id model.ConversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	summary, err := c.backend.UpdateTitle(ctx, id, title)
	if err != nil {
		c.setBanner(BannerRename)
		return err
	}

	c.mu.Lock()
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			c.conversations[i].Title = summary.Title
		}
	}
	c.mu.Unlock()
	c.notify()

	if c.recorder != nil {
		if err := c.recorder.Rename(ctx, id, summary.Title); err != nil {
			c.log.Debug().Err(err).Msg("archive rename failed")
		}
	}
	return nil
}

func (c *Controller) dropSummary(id model.ConversationID) {
	c.mu.Lock()
	kept := c.conversations[:0:0]
	for _, s := range c.conversations {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	changed := len(kept) != len(c.conversations)
	c.conversations = kept
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Controller) forget(ctx context.Context, id model.ConversationID) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Forget(ctx, id); err != nil {
		c.log.Debug().Err(err).Msg("archive forget failed")
	}
}
