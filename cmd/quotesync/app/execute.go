package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/quotesync/cmd/quotesync/cmd/engine"
	"github.com/agentstation/quotesync/cmd/quotesync/cmd/records"
	"github.com/agentstation/quotesync/cmd/quotesync/cmd/serve"
	"github.com/agentstation/quotesync/internal/cmd/output"
	"github.com/agentstation/quotesync/pkg/errors"
)

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configFile string
	verbose    bool
	quiet      bool
	format     string
	logLevel   string
}

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:     "quotesync",
		Short:   "Quote collection with remote sync and conflict resolution",
		Version: a.version,
		Long: `quotesync keeps a local collection of categorized quotes and
reconciles it with a remote source. Sync passes add new remote quotes,
record category conflicts for review and keep a backup for undo.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "management", Title: "Management Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default is $HOME/.quotesync.yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.StringVarP(&flags.format, "format", "o", "", "output format: table, json, yaml, wide")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("quotesync {{.Version}}\n")
	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(flags *rootFlags) error {
	if _, err := output.ParseFormat(flags.format); err != nil {
		return errors.NewValidationError("format", flags.format, err.Error())
	}

	a.mu.RLock()
	created := a.client != nil
	a.mu.RUnlock()
	if flags.configFile != "" && !created {
		config, err := LoadConfig(flags.configFile)
		if err != nil {
			return errors.WrapResource("load", "config", flags.configFile, err)
		}
		a.config = config
	}

	a.config.UpdateFromFlags(flags.verbose, flags.quiet, flags.format, flags.logLevel)
	a.reconfigureLogger()
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(
		records.NewListCommand(a),
		records.NewAddCommand(a),
		records.NewRemoveCommand(a),
		records.NewCurrentCommand(a),
		records.NewNextCommand(a),
		records.NewCategoriesCommand(a),
		records.NewFilterCommand(a),
		engine.NewSyncCommand(a),
		engine.NewStatusCommand(a),
		engine.NewConflictsCommand(a),
		engine.NewResolveCommand(a),
		engine.NewUndoCommand(a),
	)

	// Management commands
	rootCmd.AddCommand(
		records.NewImportCommand(a),
		records.NewExportCommand(a),
		serve.NewCommand(a),
	)

	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quotesync %s\n", a.version)
			if a.config.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "  commit:   %s\n", a.commit)
				fmt.Fprintf(cmd.OutOrStdout(), "  built:    %s\n", a.date)
				fmt.Fprintf(cmd.OutOrStdout(), "  built by: %s\n", a.builtBy)
			}
		},
	}
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
