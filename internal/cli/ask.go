// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Command: ask [question]
//
// Examples:
//
//	taxease ask "Does the new VAT rate apply to basic food items?"
//	taxease ask --conversation 3f2a... "And for pharmaceuticals?"
//	echo "What is the small company threshold?" | taxease ask
//	taxease ask --json "What changes for PAYE?"
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/util"
)

// maxStdinQuestion caps how much piped input is read as a question.
const maxStdinQuestion = 64 * 1024

// HandleAskCommand sends one question and prints the answer.
func HandleAskCommand(args Args) error {
	parser := NewArgParser(args.Raw)

	question := args.Query
	if question == "" || question == "-" {
		piped, err := readQuestionFromStdin()
		if err != nil {
			return err
		}
		question = piped
	}
	if util.IsBlank(question) {
		return ErrMissingArgument("question", `taxease ask "your question"`)
	}

	app, err := OpenApp(args, AppOptions{Console: true, Controller: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.LoggedIn() {
		return ErrNotLoggedIn
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := app.ensureReady(ctx); err != nil {
		return err
	}

	if id := parser.Flag("conversation"); id != "" {
		if err := app.Controller.Resume(ctx, model.ConversationID(id)); err != nil {
			return WrapError(err, "could not open conversation "+id)
		}
	}

	var spin *thinkingIndicator
	if !args.JSON && IsStdoutTTY() {
		spin = startThinking(os.Stderr)
	}
	start := time.Now()
	err = app.Controller.Send(ctx, question)
	spin.Stop()
	if err != nil {
		return err
	}

	sess := app.Controller.Session()
	reply := lastEntry(sess.Transcript)
	if reply == nil || reply.Failed {
		return sendFailure(app.Controller.Banner())
	}

	if args.JSON {
		return NewJSONResponse("ask", askData(sess.ConversationID, question, reply, time.Since(start))).Print()
	}

	printAnswer(os.Stdout, reply, GetTerminalWidth(), IsStdoutTTY())
	fmt.Println(DimStyle.Render("conversation " + sess.ConversationID.String()))
	return nil
}

func readQuestionFromStdin() (string, error) {
	if IsTTY() {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinQuestion))
	if err != nil {
		return "", fmt.Errorf("failed to read question from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func lastEntry(msgs []*model.Message) *model.Message {
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func askData(id model.ConversationID, question string, reply *model.Message, elapsed time.Duration) AskData {
	data := AskData{
		ConversationID: id.String(),
		Question:       question,
		Answer:         reply.Text,
		Failed:         reply.Failed,
		Misconception:  reply.MisconceptionFlag,
		Sources:        reply.Sources,
		Related:        reply.FollowUps,
		DurationMs:     elapsed.Milliseconds(),
	}
	if data.Sources == nil {
		data.Sources = []model.Citation{}
	}
	if data.Related == nil {
		data.Related = []string{}
	}
	return data
}

// =============================================================================
// ANSWER RENDERING
// =============================================================================

// printAnswer writes an assistant reply followed by its citations and
// related questions. Markdown is rendered only for terminals.
func printAnswer(w io.Writer, msg *model.Message, width int, styled bool) {
	if msg.MisconceptionFlag {
		fmt.Fprintln(w, WarningStyle.Render("! This question rests on a common misconception about the reform."))
		fmt.Fprintln(w)
	}

	body := msg.Text
	if styled {
		if rendered, err := renderMarkdown(body, width); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	if msg.Failed {
		body = ErrorStyle.Render(body)
	}
	fmt.Fprintln(w, body)

	if len(msg.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SectionStyle.Render("Sources"))
		for i, src := range msg.Sources {
			line := fmt.Sprintf("  [%d] %s", i+1, src.Label())
			if pct := src.RelevancePercent(); pct >= 0 {
				line += fmt.Sprintf(" (%d%% match)", pct)
			}
			fmt.Fprintln(w, CitationStyle.Render(line))
			if src.Excerpt != "" {
				fmt.Fprintln(w, DimStyle.Render("      "+util.TruncateRunes(src.Excerpt, width-8)))
			}
		}
	}

	if len(msg.FollowUps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SectionStyle.Render("Related questions"))
		for i, q := range msg.FollowUps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, q)
		}
	}
}

func renderMarkdown(text string, width int) (string, error) {
	wrap := width - 4
	if wrap < MinTerminalWidth {
		wrap = MinTerminalWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}

// =============================================================================
// THINKING INDICATOR
// =============================================================================

var thinkingFrames = []string{"|", "/", "-", "\\"}

// thinkingIndicator animates a one-line "Thinking" marker until stopped.
// A nil indicator is valid and does nothing.
type thinkingIndicator struct {
	w      io.Writer
	cancel context.CancelFunc
	done   chan struct{}
}

func startThinking(w io.Writer) *thinkingIndicator {
	ctx, cancel := context.WithCancel(context.Background())
	t := &thinkingIndicator{w: w, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(w, "\r%s %s", DimStyle.Render(thinkingFrames[i%len(thinkingFrames)]), DimStyle.Render("Thinking..."))
			select {
			case <-ctx.Done():
				fmt.Fprint(w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
	return t
}

// Stop clears the indicator line.
func (t *thinkingIndicator) Stop() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// isRejection reports whether err is one of the controller's synchronous
// send rejections rather than a failure.
func isRejection(err error) bool {
	return errors.Is(err, controller.ErrEmptyMessage) ||
		errors.Is(err, controller.ErrSendInFlight) ||
		errors.Is(err, controller.ErrNotReady) ||
		errors.Is(err, controller.ErrNoFollowUp)
}
