// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - Stored conversation management.
//
// Command: conversations [list|show|rename|delete|export|search]
// Aliases: conversation, convs, c
//
// Conversations are addressed by their position in `list` output, by id,
// by id prefix, or by a fuzzy match on the title.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/taxease-tui/internal/archive"
	"github.com/jeranaias/taxease-tui/internal/export"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/ui/components"
	"github.com/jeranaias/taxease-tui/internal/util"
)

const defaultSearchLimit = 20

// HandleConversations handles the "conversations" command.
func HandleConversations(args Args) {
	exitOnError(HandleConversationsCommand(args), args.JSON)
}

// HandleConversationsCommand dispatches a conversations subcommand.
func HandleConversationsCommand(args Args) error {
	parser := NewArgParser(args.Raw, "local", "no-sources", "open")

	sub := parser.Subcommand()
	if sub == "" {
		sub = "list"
	}

	app, err := OpenApp(args, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := commandContext()
	defer cancel()

	c := &conversationsCmd{app: app, args: args, parser: parser, out: os.Stdout}

	switch strings.ToLower(sub) {
	case "list", "ls":
		return c.list(ctx)
	case "show", "view", "cat":
		return c.show(ctx)
	case "rename", "mv":
		return c.rename(ctx)
	case "delete", "rm":
		return c.delete(ctx)
	case "export":
		return c.export(ctx)
	case "search", "find":
		return c.search(ctx)
	default:
		return NewValidationErrorWithExample("subcommand", sub, "unknown conversations subcommand",
			"taxease conversations list")
	}
}

type conversationsCmd struct {
	app    *App
	args   Args
	parser *ArgParser
	out    io.Writer
}

func (c *conversationsCmd) local() bool {
	return c.parser.BoolFlag("local")
}

// summaries lists conversations from the server, or from the archive
// when --local is given.
func (c *conversationsCmd) summaries(ctx context.Context) ([]model.ConversationSummary, error) {
	if c.local() {
		if c.app.Archive == nil {
			return nil, errArchiveDisabled
		}
		return c.app.Archive.List(ctx)
	}
	if !c.app.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	return c.app.Client.ListConversations(ctx)
}

// target resolves the conversation named by the first positional
// argument after the subcommand.
func (c *conversationsCmd) target(ctx context.Context, usage string) (model.ConversationSummary, error) {
	arg := c.parser.Positional(1)
	if arg == "" {
		return model.ConversationSummary{}, ErrMissingArgument("conversation", usage)
	}
	list, err := c.summaries(ctx)
	if err != nil {
		return model.ConversationSummary{}, err
	}
	id, err := resolveConversationArg(list, arg)
	if err != nil {
		return model.ConversationSummary{}, err
	}
	for _, s := range list {
		if s.ID == id {
			return s, nil
		}
	}
	return model.ConversationSummary{ID: id}, nil
}

// load fetches a full transcript from the server or the archive.
func (c *conversationsCmd) load(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	if c.local() {
		conv, err := c.app.Archive.Load(ctx, id)
		if errors.Is(err, archive.ErrNotFound) {
			return nil, NewNotFoundError("conversation", id.String())
		}
		return conv, err
	}
	conv, err := c.app.Client.FetchConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.ID.IsZero() {
		conv.ID = id
	}
	return conv, nil
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func (c *conversationsCmd) list(ctx context.Context) error {
	list, err := c.summaries(ctx)
	if err != nil {
		return err
	}
	if c.args.JSON {
		if list == nil {
			list = []model.ConversationSummary{}
		}
		return NewJSONResponse("conversations list", list).Print()
	}
	printConversationList(c.out, list, "")
	return nil
}

func (c *conversationsCmd) show(ctx context.Context) error {
	target, err := c.target(ctx, "taxease conversations show <n|id>")
	if err != nil {
		return err
	}
	conv, err := c.load(ctx, target.ID)
	if err != nil {
		return err
	}
	if conv.Title == "" {
		conv.Title = target.Title
	}

	if c.args.JSON {
		msgs := conv.Messages
		if msgs == nil {
			msgs = []*model.Message{}
		}
		return NewJSONResponse("conversations show", ConversationData{
			ID:       conv.ID.String(),
			Title:    conv.DisplayTitle(),
			Messages: msgs,
		}).Print()
	}

	fmt.Fprintln(c.out, TitleStyle.Render(conv.DisplayTitle()))
	if len(conv.Messages) == 0 {
		fmt.Fprintln(c.out, DimStyle.Render("No messages."))
		return nil
	}
	printTranscript(c.out, conv.Messages, GetTerminalWidth())
	return nil
}

func (c *conversationsCmd) rename(ctx context.Context) error {
	if c.local() {
		return NewValidationError("--local", "true", "rename applies to server conversations")
	}
	target, err := c.target(ctx, "taxease conversations rename <n|id> <title>")
	if err != nil {
		return err
	}
	title := util.NormalizeInput(JoinPositionalArgs(c.parser, 2))
	if title == "" {
		return ErrMissingArgument("title", "taxease conversations rename <n|id> <title>")
	}

	updated, err := c.app.Client.UpdateTitle(ctx, target.ID, title)
	if err != nil {
		return err
	}
	if c.app.Archive != nil {
		if err := c.app.Archive.Rename(ctx, target.ID, title); err != nil {
			c.app.Log.Warn().Err(err).Msg("archive rename failed")
		}
	}

	if c.args.JSON {
		return NewJSONResponse("conversations rename", updated).Print()
	}
	fmt.Fprintf(c.out, "%s Renamed %s to %q\n", SuccessStyle.Render("[OK]"), target.ID.Short(), title)
	return nil
}

func (c *conversationsCmd) delete(ctx context.Context) error {
	target, err := c.target(ctx, "taxease conversations delete <n|id>")
	if err != nil {
		return err
	}

	if !c.local() {
		if err := c.app.Client.DeleteConversation(ctx, target.ID); err != nil {
			return err
		}
	}
	if c.app.Archive != nil {
		if err := c.app.Archive.Forget(ctx, target.ID); err != nil {
			c.app.Log.Warn().Err(err).Msg("archive forget failed")
		}
	}

	if c.args.JSON {
		return NewJSONResponse("conversations delete", map[string]string{"id": target.ID.String()}).Print()
	}
	fmt.Fprintf(c.out, "%s Deleted %q\n", SuccessStyle.Render("[OK]"), target.DisplayTitle())
	return nil
}

func (c *conversationsCmd) export(ctx context.Context) error {
	format := c.parser.FlagOrDefault("format", "markdown")
	opts := export.DefaultOptions()
	opts.OutputDir = c.parser.FlagOrDefault("output", ".")
	opts.IncludeSources = !c.parser.BoolFlag("no-sources")
	opts.OpenAfterExport = c.parser.BoolFlag("open")
	opts.Logger = &c.app.Log.Logger
	if theme := c.parser.Flag("theme"); theme != "" {
		opts.Theme = theme
	}

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return ErrUnsupportedFormat(format, export.Formats())
	}

	target, err := c.target(ctx, "taxease conversations export <n|id>")
	if err != nil {
		return err
	}
	conv, err := c.load(ctx, target.ID)
	if err != nil {
		return err
	}
	if conv.Title == "" {
		conv.Title = target.Title
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = target.CreatedAt
		conv.UpdatedAt = target.UpdatedAt
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return err
	}
	if c.args.JSON {
		return NewJSONResponse("conversations export", map[string]string{
			"id":     conv.ID.String(),
			"format": format,
			"path":   path,
		}).Print()
	}
	fmt.Fprintf(c.out, "%s Exported to %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}

func (c *conversationsCmd) search(ctx context.Context) error {
	if c.app.Archive == nil {
		return errArchiveDisabled
	}
	query := JoinPositionalArgs(c.parser, 1)
	if util.IsBlank(query) {
		return ErrMissingArgument("text", "taxease conversations search <text>")
	}
	limit := c.parser.FlagIntOrDefault("limit", defaultSearchLimit)
	if limit < 1 {
		return NewValidationErrorWithExample("--limit", c.parser.Flag("limit"), "must be a positive number", "--limit 10")
	}

	results, err := c.app.Archive.Search(ctx, query, limit)
	if err != nil {
		return err
	}
	if c.args.JSON {
		if results == nil {
			results = []archive.SearchResult{}
		}
		return NewJSONResponse("conversations search", results).Print()
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, DimStyle.Render("No matches in the local archive."))
		return nil
	}
	width := GetTerminalWidth()
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = model.DefaultTitle
		}
		fmt.Fprintf(c.out, "%s  %s\n", DimStyle.Render(r.ConversationID.Short()), ValueStyle.Render(title))
		fmt.Fprintf(c.out, "    %s %s\n",
			DimStyle.Render(r.Message.Role.DisplayName()+":"),
			util.TruncateWidth(r.Message.Preview(0), width-16))
	}
	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

var errArchiveDisabled = errors.New("the local archive is disabled (archive.enabled = false)")

// resolveConversationArg picks a conversation by 1-based position, id,
// id prefix or fuzzy title match.
func resolveConversationArg(list []model.ConversationSummary, arg string) (model.ConversationID, error) {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(list) {
			return "", NewNotFoundError("conversation", "#"+arg)
		}
		return list[n-1].ID, nil
	}
	for _, s := range list {
		if s.ID.String() == arg {
			return s.ID, nil
		}
	}
	matches := components.MatchConversations(arg, list)
	if len(matches) == 0 {
		return "", NewNotFoundError("conversation", arg)
	}
	return matches[0].Summary.ID, nil
}

// printConversationList writes a numbered list, marking active.
func printConversationList(w io.Writer, list []model.ConversationSummary, active model.ConversationID) {
	if len(list) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet."))
		return
	}
	width := GetTerminalWidth()
	for i, s := range list {
		marker := "  "
		if s.ID == active {
			marker = SuccessStyle.Render("* ")
		}
		when := ""
		if !s.UpdatedAt.IsZero() {
			when = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		title := util.TruncateWidth(s.DisplayTitle(), width-40)
		fmt.Fprintf(w, "%s%3d. %s  %s  %s\n",
			marker, i+1,
			util.PadRight(title, width-40),
			DimStyle.Render(s.ID.Short()),
			DimStyle.Render(when))
	}
}
