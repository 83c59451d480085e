// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Backend and account summary.
//
// Command: status
// Aliases: s
//
// Probes the backend, verifies the stored login and counts conversations
// on the server and in the local archive. The three checks run
// concurrently. The exit code is 3 when the backend is not healthy.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/taxease-tui/internal/config"
	"github.com/jeranaias/taxease-tui/internal/health"
)

// HandleStatus handles the "status" command.
func HandleStatus(args Args) {
	exitOnError(HandleStatusCommand(args), args.JSON)
}

// HandleStatusCommand gathers and prints the status report.
func HandleStatusCommand(args Args) error {
	app, err := OpenApp(args, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := commandContext()
	defer cancel()

	data, report := collectStatus(ctx, app)

	if args.JSON {
		if err := NewJSONResponse("status", data).Print(); err != nil {
			return err
		}
	} else {
		printStatus(data)
	}

	if report.State != health.StateHealthy {
		return fmt.Errorf("%w: %s", errBackendNotReady, report.Message)
	}
	return nil
}

func collectStatus(ctx context.Context, app *App) (StatusData, health.Report) {
	var (
		data   StatusData
		report health.Report
	)
	data.Backend.URL = app.Client.BaseURL()
	if path, err := config.ConfigPathTOML(); err == nil {
		data.Config = path
	}
	if path, err := app.Config.LogPath(); err == nil {
		data.LogFile = path
	}

	// Each goroutine writes its own section; none of them fail the group.
	var g errgroup.Group

	g.Go(func() error {
		start := time.Now()
		report = app.Gate.Check(ctx)
		data.Backend.LatencyMs = time.Since(start).Milliseconds()
		data.Backend.State = report.State.String()
		data.Backend.Status = report.Backend.String()
		data.Backend.Message = report.Message
		data.Backend.DocumentCount = report.DocumentCount
		return nil
	})

	g.Go(func() error {
		sess := app.Tokens.Session()
		data.Account.LoggedIn = app.LoggedIn()
		data.Account.Email = sess.User.Email
		data.Account.Name = sess.User.FullName
		if !data.Account.LoggedIn {
			return nil
		}
		user, err := app.Client.Me(ctx)
		if err != nil {
			data.Account.Error = err.Error()
			return nil
		}
		data.Account.Verified = true
		data.Account.Email = user.Email
		data.Account.Name = user.FullName
		if list, err := app.Client.ListConversations(ctx); err == nil {
			data.Account.Conversations = len(list)
		} else {
			data.Account.Error = err.Error()
		}
		return nil
	})

	g.Go(func() error {
		data.Archive.Enabled = app.Archive != nil
		if app.Archive == nil {
			return nil
		}
		data.Archive.Path = app.Archive.Path()
		if list, err := app.Archive.List(ctx); err == nil {
			data.Archive.Conversations = len(list)
		} else {
			app.Log.Warn().Err(err).Msg("archive list failed")
		}
		return nil
	})

	_ = g.Wait()
	return data, report
}

func printStatus(d StatusData) {
	fmt.Println(TitleStyle.Render("TaxEase status"))

	fmt.Println(SectionStyle.Render("Backend"))
	printField("URL", d.Backend.URL)
	printField("State", RenderStatus(d.Backend.State)+" "+d.Backend.Status)
	if d.Backend.Message != "" {
		printField("Message", d.Backend.Message)
	}
	printField("Documents", strconv.Itoa(d.Backend.DocumentCount))
	printField("Latency", fmt.Sprintf("%dms", d.Backend.LatencyMs))

	fmt.Println(SectionStyle.Render("Account"))
	switch {
	case !d.Account.LoggedIn:
		printField("Signed in", "no (run `taxease login`)")
	case d.Account.Verified:
		printField("Signed in", d.Account.Email)
		if d.Account.Name != "" {
			printField("Name", d.Account.Name)
		}
		printField("Conversations", strconv.Itoa(d.Account.Conversations))
	default:
		printField("Signed in", d.Account.Email+" "+WarningStyle.Render("(not verified)"))
	}
	if d.Account.Error != "" {
		printField("Error", ErrorStyle.Render(d.Account.Error))
	}

	fmt.Println(SectionStyle.Render("Local"))
	if d.Archive.Enabled {
		printField("Archive", d.Archive.Path)
		printField("Archived", strconv.Itoa(d.Archive.Conversations))
	} else {
		printField("Archive", "disabled")
	}
	printField("Config", d.Config)
	printField("Log file", d.LogFile)
}
