// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taxease-tui/internal/export"
	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/ui/components"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// Command describes one slash command.
type Command struct {
	Name    string
	Aliases []string
	Args    string
	Help    string
}

// Commands lists the slash commands in help order.
var Commands = []Command{
	{Name: "/new", Aliases: []string{"/clear"}, Help: "start a new conversation"},
	{Name: "/resume", Aliases: []string{"/open"}, Args: "<n|id|title>", Help: "load a stored conversation"},
	{Name: "/list", Aliases: []string{"/ls"}, Help: "refresh and show the conversation list"},
	{Name: "/rename", Args: "<title>", Help: "rename the current conversation"},
	{Name: "/delete", Aliases: []string{"/rm"}, Args: "[n|id|title]", Help: "delete a conversation (default: current)"},
	{Name: "/ask", Args: "<n>", Help: "ask the n-th related question"},
	{Name: "/copy", Help: "copy the last answer to the clipboard"},
	{Name: "/export", Args: "[markdown|html|json]", Help: "export the current conversation"},
	{Name: "/sources", Help: "toggle citations under answers"},
	{Name: "/reload", Aliases: []string{"/retry"}, Help: "re-check the backend"},
	{Name: "/help", Aliases: []string{"/?"}, Help: "show commands and keys"},
	{Name: "/quit", Aliases: []string{"/exit", "/q"}, Help: "leave taxease"},
}

// errNoConversation is reported by commands that need an active conversation.
var errNoConversation = errors.New("no active conversation")

// parseCommand splits "/name args" and resolves aliases. ok is false for
// input that is not a known command.
func parseCommand(input string) (name, args string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	word, rest, _ := strings.Cut(input, " ")
	word = strings.ToLower(word)
	for _, c := range Commands {
		if c.Name == word {
			return c.Name, strings.TrimSpace(rest), true
		}
		for _, a := range c.Aliases {
			if a == word {
				return c.Name, strings.TrimSpace(rest), true
			}
		}
	}
	return word, strings.TrimSpace(rest), false
}

// resolveConversation picks a conversation by 1-based list position, id
// (or id prefix), or fuzzy title match.
func resolveConversation(arg string, convs []model.ConversationSummary) (model.ConversationSummary, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return model.ConversationSummary{}, errors.New("which conversation? give a number, id or title")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(convs) {
			return model.ConversationSummary{}, fmt.Errorf("no conversation #%d (have %d)", n, len(convs))
		}
		return convs[n-1], nil
	}
	for _, c := range convs {
		if c.ID.String() == arg {
			return c, nil
		}
	}
	matches := components.MatchConversations(arg, convs)
	if len(matches) == 0 {
		return model.ConversationSummary{}, fmt.Errorf("no conversation matches %q", arg)
	}
	return matches[0].Summary, nil
}

// runCommand executes a slash command.
func (m *Model) runCommand(input string) tea.Cmd {
	name, args, ok := parseCommand(input)
	if !ok {
		m.status = fmt.Sprintf("Unknown command %s. Type /help.", name)
		return nil
	}

	switch name {
	case "/new":
		m.ctrl.NewConversation()
		m.status = "Started a new conversation."
		return nil

	case "/resume":
		target, err := resolveConversation(args, m.view.Conversations)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		return m.resume(target)

	case "/list":
		m.showSidebar = true
		m.handleResize(m.width, m.height)
		return m.refreshList()

	case "/rename":
		id := m.view.Session.ConversationID
		if id.IsZero() {
			m.status = errNoConversation.Error()
			return nil
		}
		if args == "" {
			m.status = "Usage: /rename <title>"
			return nil
		}
		return m.runOp("rename", "Conversation renamed.", func() error {
			return m.ctrl.Rename(m.ctx, id, args)
		})

	case "/delete":
		var target model.ConversationSummary
		if args == "" {
			target.ID = m.view.Session.ConversationID
			if target.ID.IsZero() {
				m.status = errNoConversation.Error()
				return nil
			}
		} else {
			var err error
			if target, err = resolveConversation(args, m.view.Conversations); err != nil {
				m.status = err.Error()
				return nil
			}
		}
		return m.runOp("delete", "Conversation deleted.", func() error {
			return m.ctrl.Delete(m.ctx, target.ID)
		})

	case "/ask":
		n, err := strconv.Atoi(args)
		if err != nil {
			m.status = "Usage: /ask <n>"
			return nil
		}
		return m.askFollowUp(n - 1)

	case "/copy":
		return m.copyLastResponse()

	case "/export":
		format := args
		if format == "" {
			format = "markdown"
		}
		return m.exportConversation(format)

	case "/sources":
		m.showSources = !m.showSources
		m.refreshViewport()
		if m.showSources {
			m.status = "Citations shown."
		} else {
			m.status = "Citations hidden."
		}
		return nil

	case "/reload":
		return m.recheck()

	case "/help":
		m.showHelp = true
		m.status = commandSummary()
		m.handleResize(m.width, m.height)
		return nil

	case "/quit":
		return m.quit()
	}
	return nil
}

// commandSummary lists command names on one line.
func commandSummary() string {
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = c.Name
	}
	return strings.Join(names, " ")
}

// =============================================================================
// COMMAND ACTIONS
// =============================================================================

func (m *Model) resume(target model.ConversationSummary) tea.Cmd {
	m.working = "Loading " + target.DisplayTitle()
	return m.runOp("resume", "Loaded "+target.DisplayTitle()+".", func() error {
		return m.ctrl.Resume(m.ctx, target.ID)
	})
}

func (m *Model) refreshList() tea.Cmd {
	return m.runOp("refresh", "", func() error {
		return m.ctrl.RefreshConversations(m.ctx)
	})
}

func (m *Model) runOp(op, info string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, info: info, err: fn()}
	}
}

func (m *Model) askFollowUp(index int) tea.Cmd {
	last := m.view.Session.LastAssistant()
	if last == nil || index < 0 || index >= len(last.FollowUps) {
		m.status = "No such related question."
		return nil
	}
	return m.submit(last.FollowUps[index], func() error {
		return m.ctrl.Ask(m.ctx, index)
	})
}

func (m *Model) recheck() tea.Cmd {
	m.health.State = health.StateChecking
	gate, ctx := m.gate, m.ctx
	return func() tea.Msg {
		return healthMsg{report: gate.Recheck(ctx)}
	}
}

// copyLastResponse copies the last successful answer to the clipboard.
func (m *Model) copyLastResponse() tea.Cmd {
	last := m.view.Session.LastAssistant()
	if last == nil {
		m.status = "Nothing to copy yet."
		return nil
	}
	text := last.Text
	return func() tea.Msg {
		return copyDoneMsg{err: clipboard.WriteAll(text)}
	}
}

// exportConversation writes the transcript shown on screen to a file.
func (m *Model) exportConversation(format string) tea.Cmd {
	sess := m.view.Session
	if sess.IsEmpty() {
		m.status = "Nothing to export yet."
		return nil
	}

	opts := export.DefaultOptions()
	opts.OutputDir = m.opts.ExportDir
	opts.Logger = &m.log
	if !m.theme.IsDark {
		opts.Theme = "light"
	}
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		m.status = err.Error()
		return nil
	}

	conv := &model.Conversation{Messages: sess.Transcript}
	conv.ID = sess.ConversationID
	conv.CreatedAt = sess.StartTime
	conv.UpdatedAt = sess.LastActivity
	conv.Title = m.currentTitle()

	return func() tea.Msg {
		path, err := export.ExportToFile(conv, exporter, opts)
		return exportDoneMsg{path: path, err: err}
	}
}

// currentTitle returns the active conversation's title from the list, or
// one derived from its first question.
func (m *Model) currentTitle() string {
	id := m.view.Session.ConversationID
	for _, c := range m.view.Conversations {
		if c.ID == id && !id.IsZero() {
			return c.DisplayTitle()
		}
	}
	for _, msg := range m.view.Session.Transcript {
		if msg.IsUser() {
			return model.TitleFromText(msg.Text)
		}
	}
	return model.DefaultTitle
}
