// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/ui/components"
	"github.com/jeranaias/taxease-tui/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Controller is the part of controller.Controller the view drives.
type Controller interface {
	Subscribe(fn func(controller.View)) func()
	View() controller.View
	DismissBanner()
	Send(ctx context.Context, text string) error
	Ask(ctx context.Context, index int) error
	NewConversation()
	Resume(ctx context.Context, id model.ConversationID) error
	RefreshConversations(ctx context.Context) error
	Delete(ctx context.Context, id model.ConversationID) error
	Rename(ctx context.Context, id model.ConversationID, title string) error
}

// Gate is the part of health.Gate the view drives.
type Gate interface {
	Check(ctx context.Context) health.Report
	Recheck(ctx context.Context) health.Report
	Report() health.Report
}

// Options configures the chat view.
type Options struct {
	Controller Controller
	Gate       Gate
	Theme      *styles.Theme

	// BaseURL is shown in the header.
	BaseURL string

	// ExportDir receives /export output (default: current directory).
	ExportDir string

	// WordWrap caps the answer width. 0 follows the terminal.
	WordWrap int

	ShowSources bool
	ShowSidebar bool

	// StartupTimeout bounds the initial health probe and list fetch (default: 30s).
	StartupTimeout time.Duration

	Logger *zerolog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ctrl  Controller
	gate  Gate
	theme *styles.Theme
	opts  Options
	log   zerolog.Logger

	// Controller subscription; holds the latest unconsumed View.
	updates     chan controller.View
	unsubscribe func()

	view   controller.View
	health health.Report

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	sidebar  *components.Sidebar
	renderer *markdownRenderer

	width        int
	height       int
	ready        bool
	showSidebar  bool
	showSources  bool
	showHelp     bool
	followBottom bool

	// status is a transient line in the status bar.
	status string
	// working names a running conversation command ("resuming", ...).
	working string

	quitting bool
}

// New creates the chat model and subscribes to the controller.
func New(opts Options) *Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 30 * time.Second
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "tui").Logger()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about the Nigerian tax reform bills..."
	ti.Prompt = "> "
	ti.PromptStyle = opts.Theme.InputPrompt
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Spinner

	hm := help.New()
	hm.ShowAll = true

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		ctx:          ctx,
		cancel:       cancel,
		ctrl:         opts.Controller,
		gate:         opts.Gate,
		theme:        opts.Theme,
		opts:         opts,
		log:          logger,
		updates:      make(chan controller.View, 1),
		keys:         DefaultKeyMap(),
		help:         hm,
		viewport:     viewport.New(80, 20),
		input:        ti,
		spinner:      sp,
		sidebar:      components.NewSidebar(opts.Theme),
		renderer:     newMarkdownRenderer(opts.Theme.GlamourStyle()),
		showSidebar:  opts.ShowSidebar,
		showSources:  opts.ShowSources,
		followBottom: true,
		health:       health.Report{State: health.StateChecking},
	}
	m.view = m.ctrl.View()
	m.unsubscribe = m.ctrl.Subscribe(m.publish)
	return m
}

// publish keeps only the newest View in the channel; a View is a full
// snapshot so older ones can be dropped.
func (m *Model) publish(v controller.View) {
	for {
		select {
		case m.updates <- v:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

// Close releases the subscription and cancels outstanding work.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.cancel()
}

// Init starts the listener, the startup probe and the cursor blink.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.listen(),
		m.startup(),
	)
}

// listen waits for the next controller change.
func (m *Model) listen() tea.Cmd {
	ch := m.updates
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case v := <-ch:
			return viewMsg{view: v}
		case <-ctx.Done():
			return nil
		}
	}
}

// startup probes health and fetches the conversation list concurrently.
func (m *Model) startup() tea.Cmd {
	gate, ctrl := m.gate, m.ctrl
	parent, timeout := m.ctx, m.opts.StartupTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		var (
			g      errgroup.Group
			report health.Report
		)
		g.Go(func() error {
			report = gate.Check(ctx)
			return nil
		})
		g.Go(func() error {
			return ctrl.RefreshConversations(ctx)
		})
		err := g.Wait()
		return startupMsg{report: report, listErr: err}
	}
}
