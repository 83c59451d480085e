// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/archive"
	"github.com/jeranaias/taxease-tui/internal/auth"
	"github.com/jeranaias/taxease-tui/internal/config"
	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/logging"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// AppOptions selects what OpenApp builds.
type AppOptions struct {
	// Console adds a stderr log sink when --verbose is given. Full-screen
	// sessions leave it off and log only to the file.
	Console bool

	// Controller builds a conversation controller on top of the client.
	Controller bool
}

// App holds the collaborators shared by all commands and the TUI.
type App struct {
	Config *config.Config
	Log    *logging.Logger

	// Tokens is the credential store in use. File is the same store when
	// it is file backed, nil when TAXEASE_TOKEN supplied a token.
	Tokens auth.Store
	File   *auth.FileStore

	Client *api.Client
	Gate   *health.Gate

	// Archive is nil when disabled or when it could not be opened.
	Archive *archive.Archive

	// Controller is nil unless AppOptions.Controller was set.
	Controller *controller.Controller
}

// OpenApp loads configuration and builds the client stack.
func OpenApp(args Args, opts AppOptions) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logOpts := logging.Options{
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	if path, err := cfg.LogPath(); err == nil {
		logOpts.Path = path
	}
	if opts.Console && args.Verbose {
		logOpts.Console = os.Stderr
		logOpts.Level = "debug"
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		// A broken log location must not stop the program.
		logger = logging.Nop()
	}

	app := &App{Config: cfg, Log: logger}

	if err := app.openTokens(); err != nil {
		logger.Close()
		return nil, err
	}

	app.Client = api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		MaxRetries: disabledAsNegative(cfg.API.MaxRetries),
		RateLimit:  disabledAsNegativeFloat(cfg.API.RateLimit),
		RateBurst:  cfg.API.RateBurst,
		UserAgent:  "taxease/" + Version,
		Tokens:     app.Tokens,
		Logger:     &logger.Logger,
	})

	app.Gate = health.NewGate(app.Client, health.Config{
		Retries:    cfg.Health.Retries,
		RetryDelay: cfg.Health.RetryDelay(),
		Logger:     &logger.Logger,
	})

	if cfg.Archive.Enabled {
		app.openArchive()
	}

	if opts.Controller {
		ctrlOpts := controller.Options{
			Backend:           app.Client,
			Gate:              app.Gate,
			PreserveOnNew:     cfg.Chat.PreserveOnNew,
			DisableAutoTitle:  !cfg.Chat.AutoTitle,
			BackgroundTimeout: cfg.API.Timeout(),
			Logger:            &logger.Logger,
		}
		if app.Archive != nil {
			ctrlOpts.Recorder = app.Archive
		}
		app.Controller = controller.New(ctrlOpts)
	}

	logger.Debug().
		Str("base_url", app.Client.BaseURL()).
		Bool("archive", app.Archive != nil).
		Msg("app ready")
	return app, nil
}

func (a *App) openTokens() error {
	if token := os.Getenv("TAXEASE_TOKEN"); token != "" {
		a.Tokens = auth.NewMemoryStore(token)
		return nil
	}

	path, err := a.Config.CredentialsPath()
	if err != nil {
		return err
	}
	passphrase := ""
	if a.Config.Auth.Encrypt {
		passphrase = config.Passphrase()
		if passphrase == "" {
			return NewValidationErrorWithExample("auth.encrypt", "true",
				"encrypted credentials need TAXEASE_PASSPHRASE", "export TAXEASE_PASSPHRASE=...")
		}
	}
	store, err := auth.OpenFileStore(path, passphrase)
	if err != nil {
		return fmt.Errorf("could not open credentials: %w", err)
	}
	a.Tokens = store
	a.File = store
	return nil
}

func (a *App) openArchive() {
	path, err := a.Config.ArchivePath()
	if err != nil {
		a.Log.Warn().Err(err).Msg("archive disabled")
		return
	}
	arch, err := archive.Open(path)
	if err != nil {
		a.Log.Warn().Err(err).Str("path", path).Msg("archive disabled")
		return
	}
	a.Archive = arch
}

// Close waits for background work and releases resources.
func (a *App) Close() {
	if a.Controller != nil {
		a.Controller.Close()
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("archive close failed")
		}
	}
	a.Log.Close()
}

// LoggedIn reports whether any credential is available.
func (a *App) LoggedIn() bool {
	return a.Tokens.AccessToken() != "" || a.Tokens.RefreshToken() != ""
}

// ensureReady probes the backend once and fails when it is not healthy.
func (a *App) ensureReady(ctx context.Context) error {
	report := a.Gate.Check(ctx)
	if report.State == health.StateHealthy {
		return nil
	}
	msg := report.Message
	if msg == "" {
		msg = report.Backend.String()
	}
	return fmt.Errorf("%w at %s: %s", errBackendNotReady, a.Client.BaseURL(), msg)
}

// commandContext is cancelled by Ctrl-C.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// disabledAsNegative maps a config value where 0 means "off" onto the
// client's convention where 0 means "default" and negative means "off".
func disabledAsNegative(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func disabledAsNegativeFloat(f float64) float64 {
	if f == 0 {
		return -1
	}
	return f
}

// sendFailure turns the controller's banner for a failed send into an
// error whose exit code follows the failure.
func sendFailure(banner string) error {
	switch banner {
	case controller.BannerUnauthorized:
		return fmt.Errorf("%s: %w", banner, ErrNotLoggedIn)
	case controller.BannerNetwork, controller.BannerNotReady:
		return fmt.Errorf("%s: %w", banner, errBackendNotReady)
	case "":
		return errors.New(controller.FailureText)
	default:
		return errors.New(banner)
	}
}
