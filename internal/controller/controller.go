// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/session"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the transport client the controller drives.
type Backend interface {
	CreateConversation(ctx context.Context) (model.ConversationID, error)
	SendMessage(ctx context.Context, id model.ConversationID, text string) (*api.ChatResponse, error)
	ListConversations(ctx context.Context) ([]model.ConversationSummary, error)
	FetchConversation(ctx context.Context, id model.ConversationID) (*model.Conversation, error)
	UpdateTitle(ctx context.Context, id model.ConversationID, title string) (*model.ConversationSummary, error)
	DeleteConversation(ctx context.Context, id model.ConversationID) error
}

// Gate reports whether the backend is ready for chat.
type Gate interface {
	Ready() bool
}

// Recorder receives every message merged into a transcript, keyed by
// conversation. Replace installs a whole transcript loaded from the server.
// The local archive implements it.
type Recorder interface {
	Record(ctx context.Context, id model.ConversationID, msgs ...*model.Message) error
	Replace(ctx context.Context, id model.ConversationID, msgs ...*model.Message) error
	Rename(ctx context.Context, id model.ConversationID, title string) error
	Forget(ctx context.Context, id model.ConversationID) error
}

// Options configures a Controller.
type Options struct {
	// Backend is required.
	Backend Backend

	// Gate blocks sends until ready. Nil means always ready.
	Gate Gate

	// Recorder archives transcripts. Optional.
	Recorder Recorder

	// Session to drive. Nil creates a fresh one.
	Session *session.Manager

	// PreserveOnNew skips the server-side delete of the previous
	// conversation when starting a new one.
	PreserveOnNew bool

	// DisableAutoTitle skips naming new conversations after their first question.
	DisableAutoTitle bool

	// BackgroundTimeout bounds best-effort calls that outlive the caller (default: 30s)
	BackgroundTimeout time.Duration

	Logger *zerolog.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one chat surface. It is safe for concurrent use.
type Controller struct {
	backend  Backend
	gate     Gate
	recorder Recorder
	session  *session.Manager
	opts     Options
	log      zerolog.Logger

	mu            sync.Mutex
	state         State
	banner        string
	conversations []model.ConversationSummary

	subMu     sync.Mutex
	listeners map[int]func(View)
	nextSub   int

	// background tracks best-effort goroutines so Close can wait for them.
	background sync.WaitGroup

	unsubscribeSession func()
}

// New creates a controller in StateIdle.
func New(opts Options) *Controller {
	if opts.BackgroundTimeout <= 0 {
		opts.BackgroundTimeout = 30 * time.Second
	}
	sess := opts.Session
	if sess == nil {
		sess = session.NewManager()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "controller").Logger()
	}

	c := &Controller{
		backend:   opts.Backend,
		gate:      opts.Gate,
		recorder:  opts.Recorder,
		session:   sess,
		opts:      opts,
		log:       logger,
		state:     StateIdle,
		listeners: make(map[int]func(View)),
	}
	c.unsubscribeSession = sess.OnChange(func(session.State) { c.notify() })
	return c
}

// Close waits for background work (deletes, titles, list refreshes).
func (c *Controller) Close() {
	c.background.Wait()
	c.unsubscribeSession()
}

// Wait blocks until background work started so far has finished.
func (c *Controller) Wait() {
	c.background.Wait()
}

// =============================================================================
// OBSERVATION
// =============================================================================

// Subscribe registers fn to receive a View after every change. The returned
// function unregisters it.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.listeners, id)
		c.subMu.Unlock()
	}
}

// View returns the current renderable state.
func (c *Controller) View() View {
	c.mu.Lock()
	v := View{
		State:         c.state,
		Banner:        c.banner,
		Conversations: cloneSummaries(c.conversations),
	}
	c.mu.Unlock()
	v.Session = c.session.Snapshot()
	return v
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Banner returns the current error banner, empty when there is none.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// DismissBanner clears the banner.
func (c *Controller) DismissBanner() {
	c.setBanner("")
}

// Session returns a snapshot of the session state.
func (c *Controller) Session() session.State {
	return c.session.Snapshot()
}

// Conversations returns the cached conversation list.
func (c *Controller) Conversations() []model.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneSummaries(c.conversations)
}

func (c *Controller) notify() {
	c.subMu.Lock()
	fns := make([]func(View), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	if len(fns) == 0 {
		return
	}

	v := c.View()
	for _, fn := range fns {
		fn(v)
	}
}

func (c *Controller) setBanner(b string) {
	c.mu.Lock()
	changed := c.banner != b
	c.banner = b
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// goBackground runs fn with a detached, bounded context.
func (c *Controller) goBackground(fn func(ctx context.Context)) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.BackgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func cloneSummaries(in []model.ConversationSummary) []model.ConversationSummary {
	if in == nil {
		return nil
	}
	return append([]model.ConversationSummary(nil), in...)
}
