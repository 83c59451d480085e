// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-based chat command handler.
//
// Command: chat
//
// A readline-style loop for terminals where the full-screen interface is
// unwanted. Input history is kept in the config directory.
//
// Interactive Commands:
//
//	/new                Start a new conversation
//	/list               List conversations
//	/resume <n|id>      Continue a stored conversation
//	/ask <n>            Ask the n-th related question
//	/sources            Show the citations of the last answer
//	/reload             Re-check the backend
//	/help               Show commands
//	/quit               Exit
//	Ctrl+C              Cancel the question being answered; at the prompt, exit
//	Ctrl+D              Exit
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/taxease-tui/internal/config"
	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/model"
)

const chatPrompt = "taxease> "

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history owner-readable only.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT LOOP
// =============================================================================

// chatSession is the state of one `taxease chat` run.
type chatSession struct {
	app   *App
	out   io.Writer
	width int
}

// HandleChatCommand runs the line-based chat loop.
func HandleChatCommand(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	app, err := OpenApp(args, AppOptions{Console: true, Controller: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.LoggedIn() {
		return ErrNotLoggedIn
	}

	s := &chatSession{app: app, out: os.Stdout, width: GetTerminalWidth()}

	ctx, cancel := commandContext()
	report := app.Gate.Check(ctx)
	cancel()
	s.printWelcome(report)

	input := NewChatCLI()
	defer input.Close()

	for {
		line, err := input.ReadInput(chatPrompt)
		if err != nil {
			// Ctrl+C at the prompt and Ctrl+D both end the session.
			fmt.Fprintln(s.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		if strings.HasPrefix(line, "/") {
			quit, err := s.handleSlashCommand(line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		err = s.send(func(ctx context.Context) error {
			return app.Controller.Send(ctx, line)
		})
		switch {
		case err == nil:
		case isRejection(err):
			fmt.Fprintln(os.Stderr, WarningStyle.Render(err.Error()))
		default:
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// send runs one exchange. Ctrl+C cancels the request without leaving chat.
func (s *chatSession) send(do func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	spin := startThinking(os.Stderr)
	err := do(ctx)
	spin.Stop()
	if err != nil {
		return err
	}

	reply := lastEntry(s.app.Controller.Session().Transcript)
	if reply == nil {
		return nil
	}
	fmt.Fprintln(s.out)
	printAnswer(s.out, reply, s.width, true)
	if banner := s.app.Controller.Banner(); banner != "" {
		fmt.Fprintln(s.out, WarningStyle.Render(banner))
		s.app.Controller.DismissBanner()
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *chatSession) printWelcome(report health.Report) {
	fmt.Fprintln(s.out, TitleStyle.Render("TaxEase AI"))
	fmt.Fprintln(s.out, DimStyle.Render("Ask about the Nigerian tax reform bills. /help lists commands."))
	if report.State == health.StateHealthy {
		fmt.Fprintf(s.out, "%s %d documents indexed\n", RenderStatus("healthy"), report.DocumentCount)
	} else {
		fmt.Fprintf(s.out, "%s %s\n", RenderStatus("unreachable"), report.Message)
		fmt.Fprintln(s.out, DimStyle.Render("Questions are refused until the backend is ready. Use /reload to re-check."))
	}
	fmt.Fprintln(s.out)
}

// handleSlashCommand runs one slash command and reports whether to quit.
func (s *chatSession) handleSlashCommand(line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	ctrl := s.app.Controller

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/h", "/?":
		s.printHelp()

	case "/new", "/clear":
		ctrl.NewConversation()
		fmt.Fprintln(s.out, SuccessStyle.Render("Started a new conversation."))

	case "/list", "/ls":
		ctx, cancel := commandContext()
		defer cancel()
		if err := ctrl.RefreshConversations(ctx); err != nil {
			return false, err
		}
		printConversationList(s.out, ctrl.Conversations(), ctrl.Session().ConversationID)

	case "/resume", "/open":
		if rest == "" {
			return false, ErrMissingArgument("conversation", "/resume <n|id>")
		}
		ctx, cancel := commandContext()
		defer cancel()
		if len(ctrl.Conversations()) == 0 {
			if err := ctrl.RefreshConversations(ctx); err != nil {
				return false, err
			}
		}
		id, err := resolveConversationArg(ctrl.Conversations(), rest)
		if err != nil {
			return false, err
		}
		if err := ctrl.Resume(ctx, id); err != nil {
			return false, errors.New(controller.BannerResume)
		}
		printTranscript(s.out, ctrl.Session().Transcript, s.width)

	case "/ask":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return false, NewValidationErrorWithExample("related question", rest, "expected a number", "/ask 1")
		}
		return false, s.send(func(ctx context.Context) error {
			return ctrl.Ask(ctx, n-1)
		})

	case "/sources":
		last := ctrl.Session().LastAssistant()
		if last == nil || !last.HasSources() {
			fmt.Fprintln(s.out, DimStyle.Render("No sources for the last answer."))
			return false, nil
		}
		for i, src := range last.Sources {
			fmt.Fprintln(s.out, CitationStyle.Render(fmt.Sprintf("[%d] %s", i+1, src.Label())))
			if src.Excerpt != "" {
				fmt.Fprintln(s.out, "    "+src.Excerpt)
			}
		}

	case "/reload", "/retry":
		ctx, cancel := commandContext()
		defer cancel()
		report := s.app.Gate.Recheck(ctx)
		if report.State == health.StateHealthy {
			ctrl.DismissBanner()
		}
		fmt.Fprintf(s.out, "%s %s\n", RenderStatus(report.State.String()), report.Message)

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func (s *chatSession) printHelp() {
	fmt.Fprintln(s.out, SectionStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/new", "Start a new conversation"},
		{"/list", "List conversations"},
		{"/resume <n|id>", "Continue a stored conversation"},
		{"/ask <n>", "Ask the n-th related question"},
		{"/sources", "Show citations of the last answer"},
		{"/reload", "Re-check the backend"},
		{"/quit", "Exit"},
	} {
		fmt.Fprintln(s.out, "  "+RenderLabel(row[0])+row[1])
	}
}

// printTranscript writes a loaded conversation.
func printTranscript(w io.Writer, msgs []*model.Message, width int) {
	for _, msg := range msgs {
		if msg.IsUser() {
			fmt.Fprintln(w, UserStyle.Render(msg.Role.DisplayName()+":")+" "+msg.Text)
			continue
		}
		fmt.Fprintln(w, AssistantStyle.Render(msg.Role.DisplayName()+":"))
		printAnswer(w, msg, width, false)
		fmt.Fprintln(w)
	}
}
