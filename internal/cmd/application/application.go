// Package application defines what CLI commands need from the running
// program. The App in cmd/quotesync/app implements it; tests use Mock.
//
// Usage in commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := app.Client()
//	            if err != nil {
//	                return err
//	            }
//	            _, err = client.Sync(cmd.Context())
//	            return err
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/quotesync"
)

// Settings are configuration values commands read beyond the client.
type Settings struct {
	ServerHost string
	ServerPort int
	AutoSync   bool
}

// Application provides the dependencies commands use.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the shared quotesync client, creating it on first use.
	Client() (quotesync.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format (table, json, yaml, wide),
	// or "" to auto-detect.
	OutputFormat() string

	// Quiet reports whether status lines should be suppressed.
	Quiet() bool

	// Settings returns the non-client configuration.
	Settings() Settings

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
