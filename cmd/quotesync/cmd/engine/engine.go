// Package engine provides the commands that drive sync passes and
// conflict handling.
package engine

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/quotesync/internal/cmd/application"
	"github.com/agentstation/quotesync/internal/cmd/cmdutil"
	"github.com/agentstation/quotesync/internal/cmd/output"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/reconcile"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Reconcile the collection with the remote source",
		Long: `Sync fetches the remote list and merges it into the local collection.
New remote quotes are added. A quote whose category differs is a conflict;
the configured policy decides which category is applied, and the conflict
stays listed until it is resolved. The collection before the pass is kept
for undo.`,
		Example: `  quotesync sync
  quotesync sync --dry-run -o json
  quotesync sync --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			opts := []pkgsync.Option{
				pkgsync.WithDryRun(cmdutil.MustGetBool(cmd, "dry-run")),
			}
			if limit := cmdutil.MustGetInt(cmd, "limit"); limit > 0 {
				opts = append(opts, pkgsync.WithLimit(limit))
			}
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				opts = append(opts, pkgsync.WithTimeout(timeout))
			}

			n := cmdutil.Notifier(cmd, app)
			result, err := client.Sync(cmd.Context(), opts...)
			if err != nil {
				n.Error(constants.MsgSyncFailed)
				return err
			}
			if !result.Persisted {
				n.Warn("Pass applied in memory only: durable storage write failed")
			}
			if !result.DryRun {
				n.Success(constants.MsgSynced)
			}
			if len(result.Conflicts) > 0 {
				n.Hint("Review with 'quotesync conflicts', revert with 'quotesync undo'")
			}
			return cmdutil.Render(cmd, app, output.Result(*result))
		},
	}
	cmd.Flags().Int("limit", 0, "Number of remote entries to fetch (default from config)")
	cmd.Flags().Bool("dry-run", false, "Preview the pass without applying it")
	cmd.Flags().Duration("timeout", 0, "Abort the pass after this long")
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "core",
		Short:   "Show sync state, conflicts and undo availability",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return cmdutil.Render(cmd, app, output.Status(client.Status()))
		},
	}
}

// NewConflictsCommand creates the conflicts command.
func NewConflictsCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "conflicts",
		GroupID: "core",
		Short:   "List conflicts awaiting resolution",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			conflicts := client.Conflicts()
			if len(conflicts) == 0 {
				cmdutil.Notifier(cmd, app).Success("No outstanding conflicts")
			}
			return cmdutil.Render(cmd, app, output.Conflicts(conflicts))
		},
	}
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resolve <text>",
		GroupID: "core",
		Short:   "Resolve a conflict by keeping the local or remote category",
		Example: `  quotesync resolve "Be bold" --choice keep-local
  quotesync resolve "Be bold" --choice use-remote`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			choice, err := reconcile.ParseChoice(cmdutil.MustGetString(cmd, "choice"))
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}

			n := cmdutil.Notifier(cmd, app)
			text := strings.Join(args, " ")
			if err := client.Resolve(cmd.Context(), text, choice); err != nil {
				if !errors.IsPersistence(err) {
					return err
				}
				n.Warn("Resolution kept in memory only: %v", err)
			}
			n.Success("Resolved %q (%s), %d conflicts remaining", text, choice, len(client.Conflicts()))
			return nil
		},
	}
	cmd.Flags().String("choice", string(reconcile.KeepLocal), "keep-local or use-remote")
	return cmd
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "undo",
		GroupID: "core",
		Short:   "Restore the collection to its state before the last sync",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			n := cmdutil.Notifier(cmd, app)
			if err := client.Undo(cmd.Context()); err != nil {
				if !errors.IsPersistence(err) {
					return err
				}
				n.Warn("Undo kept in memory only: %v", err)
			}
			n.Success("Restored %d quotes from the last sync backup", len(client.All()))
			return nil
		},
	}
}
