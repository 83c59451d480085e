// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/util"
)

// =============================================================================
// SEND
// =============================================================================

// Send submits one question. It blocks until the reply is merged or the
// failure recorded, and returns nil in both cases. Only the synchronous
// rejections (ErrEmptyMessage, ErrNotReady, ErrSendInFlight) are returned;
// they perform no I/O and leave the transcript unchanged.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = util.NormalizeInput(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.gate != nil && !c.gate.Ready() {
		c.setBanner(BannerNotReady)
		return ErrNotReady
	}

	gen, userMsg, ok := c.session.Begin(text)
	if !ok {
		return ErrSendInFlight
	}
	if !c.update(gen, func() { c.banner = "" }) {
		// Reset before the request went out; nothing to send for.
		return nil
	}

	id := c.session.ConversationID()
	created := false
	if id.IsZero() {
		if !c.transition(gen, StateAwaitingConversationCreation) {
			return nil
		}
		newID, err := c.backend.CreateConversation(ctx)
		if err != nil {
			c.fail(gen, "create conversation", err)
			return nil
		}
		if !c.session.SetConversationID(gen, newID) {
			// The user started over while we waited; nobody will use this one.
			c.log.Debug().Str("conversation_id", newID.String()).Msg("discarding conversation created for a stale send")
			c.deleteInBackground(newID)
			return nil
		}
		id = newID
		created = true
		c.log.Info().Str("conversation_id", id.String()).Msg("conversation created")
	}

	if !c.transition(gen, StateAwaitingResponse) {
		return nil
	}
	resp, err := c.backend.SendMessage(ctx, id, text)
	if err != nil {
		c.fail(gen, "send message", err)
		return nil
	}

	if !resp.ConversationID.IsZero() && resp.ConversationID != id {
		c.log.Info().
			Str("requested", id.String()).
			Str("adopted", resp.ConversationID.String()).
			Msg("adopting server conversation id")
		if c.session.SetConversationID(gen, resp.ConversationID) {
			id = resp.ConversationID
		}
	}

	reply := resp.Message()
	if !c.session.AppendAssistant(gen, reply) {
		c.log.Debug().Msg("discarding stale response")
		return nil
	}
	c.transition(gen, StateIdle)
	c.session.Finish(gen)

	c.record(ctx, id, userMsg, reply)
	c.afterExchange(id, text, created)
	return nil
}

// Ask sends the index-th related question suggested by the latest reply.
func (c *Controller) Ask(ctx context.Context, index int) error {
	last := c.session.Snapshot().LastAssistant()
	if last == nil || index < 0 || index >= len(last.FollowUps) {
		return ErrNoFollowUp
	}
	return c.Send(ctx, last.FollowUps[index])
}

// fail records a failed send: a failed assistant entry, a banner, and the
// Error to Idle transition. Failures of a stale send are dropped silently.
func (c *Controller) fail(gen uint64, op string, err error) {
	banner, text := describeFailure(err)

	if !c.transition(gen, StateError) {
		c.log.Debug().Err(err).Str("op", op).Msg("ignoring failure of stale send")
		return
	}
	c.log.Warn().Err(err).Str("op", op).Str("kind", api.KindOf(err).String()).Msg("send failed")

	if !c.session.AppendFailure(gen, text) {
		return
	}
	// Idle before Finish: once the pending flag drops a new send may own
	// the state.
	c.update(gen, func() {
		c.banner = banner
		c.state = StateIdle
	})
	c.session.Finish(gen)
}

// transition moves to s unless the send that owns gen has been superseded.
// The generation check and the state change happen under the session lock,
// so a concurrent reset either precedes it (and wins) or follows it.
func (c *Controller) transition(gen uint64, s State) bool {
	return c.update(gen, func() { c.state = s })
}

// update applies fn to the controller fields if gen is still current, then
// notifies subscribers.
func (c *Controller) update(gen uint64, fn func()) bool {
	ok := c.session.Guard(gen, func() {
		c.mu.Lock()
		fn()
		c.mu.Unlock()
	})
	if ok {
		c.notify()
	}
	return ok
}

// describeFailure maps an error onto the banner and the transcript text.
// Validation failures carry the backend's own wording; everything else
// gets a generic apology.
func describeFailure(err error) (banner, text string) {
	switch api.KindOf(err) {
	case api.KindValidation:
		if detail := api.DetailOf(err); detail != "" {
			return detail, detail
		}
		return BannerServer, FailureText
	case api.KindNetwork:
		return BannerNetwork, FailureText
	case api.KindUnauthorized:
		return BannerUnauthorized, FailureText
	default:
		return BannerServer, FailureText
	}
}

// afterExchange titles a conversation created by this send and refreshes
// the conversation list. Both are best effort.
func (c *Controller) afterExchange(id model.ConversationID, firstQuestion string, created bool) {
	title := ""
	if created && !c.opts.DisableAutoTitle {
		title = model.TitleFromText(firstQuestion)
	}

	c.goBackground(func(ctx context.Context) {
		if title != "" {
			if _, err := c.backend.UpdateTitle(ctx, id, title); err != nil {
				c.log.Debug().Err(err).Str("conversation_id", id.String()).Msg("auto-title failed")
			} else if c.recorder != nil {
				if err := c.recorder.Rename(ctx, id, title); err != nil {
					c.log.Debug().Err(err).Msg("archive rename failed")
				}
			}
		}
		if err := c.RefreshConversations(ctx); err != nil {
			c.log.Debug().Err(err).Msg("conversation list refresh failed")
		}
	})
}

func (c *Controller) record(ctx context.Context, id model.ConversationID, msgs ...*model.Message) {
	if c.recorder == nil || id.IsZero() {
		return
	}
	if err := c.recorder.Record(ctx, id, msgs...); err != nil {
		c.log.Warn().Err(err).Msg("archive write failed")
	}
}
