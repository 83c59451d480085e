// taxease - A terminal client for the TaxEase AI tax reform assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taxease-tui/internal/auth"
	"github.com/jeranaias/taxease-tui/internal/cli"
	"github.com/jeranaias/taxease-tui/internal/ui/chat"
	"github.com/jeranaias/taxease-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		// Exit only after runTUI's deferred cleanup has run.
		if err := runTUI(args); err != nil {
			cli.HandleErrorAndExit(err, args.JSON)
		}
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdConversations:
		cli.HandleConversations(args)
	case cli.CmdLogin:
		cli.HandleLogin(args)
	case cli.CmdSignup:
		cli.HandleSignup(args)
	case cli.CmdLogout:
		cli.HandleLogout(args)
	case cli.CmdWhoami:
		cli.HandleWhoami(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandleUnknown(args)
	}
}

// runTUI starts the full-screen chat. It returns instead of exiting so that
// background work is awaited and the archive and log are closed.
func runTUI(args cli.Args) error {
	if err := cli.RequiresTTY("the chat interface"); err != nil {
		return err
	}

	// Logs go to the file only; the alt screen owns the terminal.
	app, err := cli.OpenApp(args, cli.AppOptions{Controller: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.LoggedIn() {
		return cli.ErrNotLoggedIn
	}

	cfg := app.Config
	m := chat.New(chat.Options{
		Controller:  app.Controller,
		Gate:        app.Gate,
		Theme:       styles.NewTheme(cfg.UI.Theme),
		BaseURL:     app.Client.BaseURL(),
		WordWrap:    cfg.UI.WordWrap,
		ShowSources: cfg.UI.ShowSources,
		ShowSidebar: cfg.UI.ShowSidebar,
		Logger:      &app.Log.Logger,
	})
	defer m.Close()

	// Pick up logins and logouts made from another terminal.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if app.File != nil {
		go func() {
			err := app.File.Watch(ctx, func(s auth.Session) {
				app.Log.Info().Bool("logged_in", s.LoggedIn()).Str("email", s.User.Email).Msg("credentials changed on disk")
			})
			if err != nil {
				app.Log.Warn().Err(err).Msg("credentials watch stopped")
			}
		}()
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running taxease: %w", err)
	}
	return nil
}
