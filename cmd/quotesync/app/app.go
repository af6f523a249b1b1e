// Package app wires configuration, logging and the quotesync client
// together for the CLI and owns their lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/quotesync"
	"github.com/agentstation/quotesync/internal/cmd/application"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/kv"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/reconcile"
)

// App represents the quotesync application with all its dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// client is created on first use
	mu     sync.RWMutex
	client quotesync.Client
}

var _ application.Application = (*App)(nil)

// New creates an App, loading configuration from the default locations.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}
	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Quiet reports whether status lines are suppressed.
func (a *App) Quiet() bool { return a.config.Quiet }

// Settings returns the server and scheduling settings.
func (a *App) Settings() application.Settings {
	return application.Settings{
		ServerHost: a.config.ServerHost,
		ServerPort: a.config.ServerPort,
		AutoSync:   a.config.AutoSync,
	}
}

// Client returns the quotesync client, creating it on first use.
func (a *App) Client() (quotesync.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.clientOptions()
	if err != nil {
		return nil, err
	}
	c, err := quotesync.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.client = c
	return c, nil
}

// clientOptions builds client options from the configuration.
func (a *App) clientOptions() ([]quotesync.Option, error) {
	durable, err := kv.NewFile(a.config.DurablePath())
	if err != nil {
		return nil, err
	}
	session, err := kv.NewFile(a.config.SessionPath())
	if err != nil {
		return nil, err
	}
	policy, err := reconcile.PolicyByName(a.config.Policy)
	if err != nil {
		return nil, err
	}

	opts := []quotesync.Option{
		quotesync.WithStorage(durable),
		quotesync.WithSessionStorage(session),
		quotesync.WithPolicy(policy),
		quotesync.WithSubmitOnAdd(a.config.SubmitOnAdd),
		quotesync.WithRemoteLimit(a.config.RemoteLimit),
		quotesync.WithSyncInterval(a.config.SyncInterval),
		quotesync.WithSyncRetries(a.config.SyncRetries),
	}
	if a.config.RemoteURL != "" {
		opts = append(opts, quotesync.WithRemoteURL(a.config.RemoteURL, a.config.RemoteCategory, a.config.RemoteTimeout))
	}
	return opts, nil
}

// Shutdown stops scheduled syncing and releases the client.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()

	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close client during shutdown")
		return err
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(c quotesync.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}

// reconfigureLogger rebuilds the logger after flags are applied and makes
// it the package default.
func (a *App) reconfigureLogger() {
	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)
}
