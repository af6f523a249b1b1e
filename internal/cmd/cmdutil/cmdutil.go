// Package cmdutil provides helpers shared by quotesync commands.
package cmdutil

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/quotesync/internal/cmd/application"
	"github.com/agentstation/quotesync/internal/cmd/notify"
	"github.com/agentstation/quotesync/internal/cmd/output"
)

// Format resolves the app's output format, auto-detecting when unset.
func Format(app application.Application) (output.Format, error) {
	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return "", err
	}
	return output.DetectFormat(string(format)), nil
}

// Render writes v to the command's stdout in the app's output format.
func Render(cmd *cobra.Command, app application.Application, v any) error {
	format, err := Format(app)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), v)
}

// Notifier returns a notifier for the command's error stream.
func Notifier(cmd *cobra.Command, app application.Application) *notify.Notifier {
	format, err := Format(app)
	if err != nil {
		format = output.FormatTable
	}
	return notify.NewFromCommand(cmd, format, app.Quiet())
}

// MustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined by the calling package.
func MustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// MustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func MustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// MustGetInt retrieves an integer flag value or panics if the flag doesn't exist.
func MustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
