// Package serve provides the command that runs the HTTP API.
package serve

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/quotesync/internal/cmd/application"
	"github.com/agentstation/quotesync/internal/cmd/cmdutil"
	"github.com/agentstation/quotesync/internal/server"
	"github.com/agentstation/quotesync/pkg/constants"
)

// NewCommand creates the serve command.
func NewCommand(app application.Application) *cobra.Command {
	settings := app.Settings()
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "management",
		Short:   "Start the REST API with WebSocket and SSE updates",
		Long: `Serve exposes the collection, sync passes and conflicts over HTTP.

Endpoints live under the path prefix (default /api/v1). Record and sync
events are pushed to /updates/ws (WebSocket) and /updates/stream (SSE).
Prometheus metrics are served at /metrics.`,
		Example: `  quotesync serve
  quotesync serve --port 3000 --auto-sync
  quotesync serve --cors-origins https://app.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app)
		},
	}

	cmd.Flags().Int("port", settings.ServerPort, "Server port")
	cmd.Flags().String("host", settings.ServerHost, "Bind address")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Read cache TTL")
	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")
	cmd.Flags().Bool("metrics", defaults.MetricsEnabled, "Serve Prometheus metrics at /metrics")
	cmd.Flags().Bool("auto-sync", settings.AutoSync, "Run scheduled sync passes while serving")
	return cmd
}

// parseConfig parses command flags into server configuration. Host and
// port fall back to settings unless set on the command line, since
// --config is loaded after the flags were declared.
func parseConfig(cmd *cobra.Command, settings application.Settings) server.Config {
	origins, _ := cmd.Flags().GetStringSlice("cors-origins")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	idleTimeout, _ := cmd.Flags().GetDuration("idle-timeout")

	host := cmdutil.MustGetString(cmd, "host")
	if !cmd.Flags().Changed("host") && settings.ServerHost != "" {
		host = settings.ServerHost
	}
	port := cmdutil.MustGetInt(cmd, "port")
	if !cmd.Flags().Changed("port") {
		port = settings.ServerPort
	}

	return server.Config{
		Host:           host,
		Port:           port,
		PathPrefix:     cmdutil.MustGetString(cmd, "prefix"),
		CORSEnabled:    cmdutil.MustGetBool(cmd, "cors") || len(origins) > 0,
		CORSOrigins:    origins,
		CacheTTL:       cacheTTL,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MetricsEnabled: cmdutil.MustGetBool(cmd, "metrics"),
	}
}

// run serves until the command context is cancelled, then drains
// connections and stops the background services.
func run(cmd *cobra.Command, app application.Application) error {
	settings := app.Settings()
	cfg := parseConfig(cmd, settings)
	logger := app.Logger()

	client, err := app.Client()
	if err != nil {
		return err
	}
	autoSync := cmdutil.MustGetBool(cmd, "auto-sync")
	if !cmd.Flags().Changed("auto-sync") {
		autoSync = settings.AutoSync
	}
	if autoSync {
		if err := client.AutoSyncOn(); err != nil {
			return err
		}
		defer client.AutoSyncOff()
	}

	srv := server.New(client, cfg, logger)
	srv.Start()
	httpServer := srv.HTTPServer()

	logger.Info().
		Str("addr", httpServer.Addr).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("metrics", cfg.MetricsEnabled).
		Bool("auto_sync", client.AutoSyncRunning()).
		Msg("Starting API server")

	n := cmdutil.Notifier(cmd, app)
	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		n.Success("API server listening on http://%s%s", httpServer.Addr, cfg.PathPrefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down API server")

		// the parent context is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		httpErr := httpServer.Shutdown(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}
		return httpErr
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Dur("timeout", constants.ShutdownTimeout).Msg("Server stopped gracefully")
	n.Success("API server stopped")
	return nil
}
