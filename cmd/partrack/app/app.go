// Package app provides the application context and dependency
// management for the partrack CLI: configuration, logging, and
// lazily-initialized clients for the tracker API, the development
// server, and the file archive.
package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/partrack/partrack/internal/notify"
	"github.com/partrack/partrack/internal/portal"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/internal/trackerapi"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/logging"
)

// App represents the partrack application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// runID correlates every log line of one invocation.
	runID string

	// Lazily-initialized, signed-in clients.
	mu      sync.Mutex
	api     *trackerapi.Client
	portal  *portal.Client
	archive *portal.Archive
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		runID:   uuid.NewString(),
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.NewConfigError("app", "loading configuration", err)
	}
	app.config = config

	logger := NewLogger(config).With().Str("run_id", app.runID).Logger()
	app.logger = &logger

	return app, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Run builds the run context from the configuration: logger, dry-run
// flag, designation filter, blacklist, and page bound.
func (a *App) Run() *runctx.Run {
	run := runctx.New(*a.logger).WithOnly(a.config.Only)
	run.DryRun = a.config.DryRun
	run.Blacklist = a.config.Blacklist
	run.PageLimit = a.config.Limit
	return run
}

// RunFor builds a run context whose logger is tagged with the feed
// being synced.
func (a *App) RunFor(source string) *runctx.Run {
	run := a.Run()
	run.Logger = logging.WithSource(run.Logger, source)
	return run
}

// API returns the tracker client, signing in on first use.
func (a *App) API(ctx context.Context) (*trackerapi.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.api != nil {
		return a.api, nil
	}
	if a.config.APIURI == "" {
		return nil, errors.NewConfigError("tracker", "api_uri is not set", nil)
	}
	client, err := trackerapi.New(a.config.APIURI,
		trackerapi.WithLogger(*a.logger),
		trackerapi.WithDryRun(a.config.DryRun))
	if err != nil {
		return nil, err
	}
	if err := client.SignIn(ctx, a.config.Email, a.config.Password); err != nil {
		return nil, err
	}
	a.api = client
	return client, nil
}

// Reconciler builds a reconciler over the tracker client, with Slack
// notifications when enabled.
func (a *App) Reconciler(ctx context.Context) (*reconcile.Reconciler, error) {
	api, err := a.API(ctx)
	if err != nil {
		return nil, err
	}
	var notifier notify.Notifier = notify.Nop{}
	if a.config.Slack {
		if a.config.SlackWebhook == "" {
			return nil, errors.NewConfigError("slack", "slack_webhook is not set", nil)
		}
		notifier = notify.NewSlack(a.config.SlackWebhook, *a.logger)
	}
	return reconcile.New(api, a.Run(), notifier), nil
}

// Portal returns the development server client, logging in on first
// use via its HTML sign-in form.
func (a *App) Portal(ctx context.Context) (*portal.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.portal != nil {
		return a.portal, nil
	}
	if a.config.DevHost == "" {
		return nil, errors.NewConfigError("portal", "dev_host is not set", nil)
	}
	client := portal.New(portal.WithLogger(*a.logger))
	if err := client.Login(ctx, a.config.DevHost, a.config.DevUser, a.config.DevPassword); err != nil {
		return nil, err
	}
	a.portal = client
	return client, nil
}

// Archive returns the basic-auth client for the file and mail archive.
func (a *App) Archive() *portal.Archive {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.archive == nil {
		a.archive = portal.NewArchive(a.config.ArchiveUser, a.config.ArchivePassword,
			portal.WithArchiveLogger(*a.logger))
	}
	return a.archive
}
