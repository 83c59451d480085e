// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Account commands.
//
// Commands:
//
//	login [--email EMAIL]
//	signup [--email EMAIL] [--name "Full Name"]
//	logout
//	whoami
//
// Passwords are always read from the terminal without echo, or from the
// first line of stdin when it is piped.
package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/auth"
)

var errTokenOverride = errors.New("TAXEASE_TOKEN is set; unset it to use stored credentials")

// HandleLogin handles the "login" command.
func HandleLogin(args Args) {
	exitOnError(HandleLoginCommand(args), args.JSON)
}

// HandleSignup handles the "signup" command.
func HandleSignup(args Args) {
	exitOnError(HandleSignupCommand(args), args.JSON)
}

// HandleLogout handles the "logout" command.
func HandleLogout(args Args) {
	exitOnError(HandleLogoutCommand(args), args.JSON)
}

// HandleWhoami handles the "whoami" command.
func HandleWhoami(args Args) {
	exitOnError(HandleWhoamiCommand(args), args.JSON)
}

// =============================================================================
// LOGIN / SIGNUP
// =============================================================================

// HandleLoginCommand exchanges email and password for tokens and stores them.
func HandleLoginCommand(args Args) error {
	parser := NewArgParser(args.Raw)

	app, err := OpenApp(args, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()
	if app.File == nil {
		return errTokenOverride
	}

	email, err := flagOrPrompt(parser, "email", "Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return ErrMissingArgument("password", "taxease login --email you@example.com")
	}

	ctx, cancel := commandContext()
	defer cancel()

	tokens, err := app.Client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return storeSession(app, args, "login", tokens)
}

// HandleSignupCommand creates an account and stores its tokens.
func HandleSignupCommand(args Args) error {
	parser := NewArgParser(args.Raw)

	app, err := OpenApp(args, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()
	if app.File == nil {
		return errTokenOverride
	}

	email, err := flagOrPrompt(parser, "email", "Email: ")
	if err != nil {
		return err
	}
	name, err := flagOrPrompt(parser, "name", "Full name: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	if IsTTY() {
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return NewValidationError("password", "", "passwords do not match")
		}
	}
	if password == "" {
		return ErrMissingArgument("password", "taxease signup --email you@example.com")
	}

	ctx, cancel := commandContext()
	defer cancel()

	tokens, err := app.Client.Signup(ctx, api.SignupRequest{
		Email:    email,
		Password: password,
		FullName: name,
	})
	if err != nil {
		return err
	}
	return storeSession(app, args, "signup", tokens)
}

func storeSession(app *App, args Args, command string, tokens *api.TokenResponse) error {
	sess := auth.SessionFromTokens(tokens, time.Now())
	if err := app.Tokens.Save(sess); err != nil {
		return fmt.Errorf("signed in but could not save credentials: %w", err)
	}
	app.Log.Info().Str("email", sess.User.Email).Str("command", command).Msg("credentials saved")

	if args.JSON {
		return NewJSONResponse(command, whoamiData(sess.User)).Print()
	}
	fmt.Printf("%s Signed in as %s\n", SuccessStyle.Render("[OK]"), sess.DisplayName())
	if app.File.Encrypted() {
		fmt.Println(DimStyle.Render("Credentials are encrypted at " + app.File.Path()))
	} else {
		fmt.Println(DimStyle.Render("Credentials saved to " + app.File.Path()))
	}
	return nil
}

func flagOrPrompt(parser *ArgParser, name, prompt string) (string, error) {
	if v := strings.TrimSpace(parser.Flag(name)); v != "" {
		return v, nil
	}
	v, err := promptLine(prompt)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrMissingArgument(name, "--"+name+" VALUE")
	}
	return v, nil
}

// =============================================================================
// LOGOUT / WHOAMI
// =============================================================================

// HandleLogoutCommand revokes the refresh token and forgets credentials.
// Local credentials are cleared even when the server cannot be reached.
func HandleLogoutCommand(args Args) error {
	app, err := OpenApp(args, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()
	if app.File == nil {
		return errTokenOverride
	}

	sess := app.Tokens.Session()
	if !sess.LoggedIn() {
		if args.JSON {
			return NewJSONResponse("logout", map[string]bool{"logged_out": false}).Print()
		}
		fmt.Println(DimStyle.Render("Not signed in."))
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()
	if err := app.Client.Logout(ctx, sess.RefreshToken); err != nil {
		app.Log.Warn().Err(err).Msg("server logout failed; clearing local credentials anyway")
	}
	if err := app.Tokens.Clear(); err != nil {
		return fmt.Errorf("could not remove credentials: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"logged_out": true}).Print()
	}
	fmt.Printf("%s Signed out %s\n", SuccessStyle.Render("[OK]"), sess.DisplayName())
	return nil
}

// HandleWhoamiCommand asks the backend who the stored token belongs to.
func HandleWhoamiCommand(args Args) error {
	app, err := OpenApp(args, AppOptions{Console: true})
	if err != nil {
		return err
	}
	defer app.Close()
	if !app.LoggedIn() {
		return ErrNotLoggedIn
	}

	ctx, cancel := commandContext()
	defer cancel()

	user, err := app.Client.Me(ctx)
	if err != nil {
		return err
	}

	// Keep the stored profile in step with the server.
	if app.File != nil {
		sess := app.Tokens.Session()
		sess.User = auth.User{ID: user.ID, Email: user.Email, FullName: user.FullName}
		if err := app.Tokens.Save(sess); err != nil {
			app.Log.Warn().Err(err).Msg("could not update stored profile")
		}
	}

	if args.JSON {
		return NewJSONResponse("whoami", WhoamiData{ID: user.ID, Email: user.Email, FullName: user.FullName}).Print()
	}
	fmt.Println(TitleStyle.Render("Account"))
	printField("Name", user.FullName)
	printField("Email", user.Email)
	printField("ID", user.ID)
	return nil
}

func whoamiData(u auth.User) WhoamiData {
	return WhoamiData{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
