// Package records provides the commands that read and edit the local
// quote collection.
package records

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/quotesync/internal/cmd/application"
	"github.com/agentstation/quotesync/internal/cmd/cmdutil"
	"github.com/agentstation/quotesync/internal/cmd/output"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/records"
)

// NewListCommand creates the list command.
func NewListCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		GroupID: "core",
		Short:   "List quotes in the selected category",
		Example: `  quotesync list
  quotesync list --category Motivation
  quotesync list --all -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			list := client.Filtered()
			if category := cmdutil.MustGetString(cmd, "category"); category != "" {
				list = client.All().InCategory(category)
			}
			if cmdutil.MustGetBool(cmd, "all") {
				list = client.All()
			}
			return cmdutil.Render(cmd, app, output.Records(list))
		},
	}
	cmd.Flags().StringP("category", "c", "", "List this category instead of the selected filter")
	cmd.Flags().Bool("all", false, "List every quote")
	return cmd
}

// NewAddCommand creates the add command.
func NewAddCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <text>",
		GroupID: "core",
		Short:   "Add a quote and submit it to the remote",
		Example: `  quotesync add "Stay hungry" --category Motivation`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			result, err := client.Add(cmd.Context(), strings.Join(args, " "), cmdutil.MustGetString(cmd, "category"))
			if err != nil {
				return err
			}

			n := cmdutil.Notifier(cmd, app)
			if !result.Persisted {
				n.Warn("Quote kept in memory only: durable storage write failed")
			}
			if result.SubmitErr != "" {
				n.Warn("Remote submission failed: %s", result.SubmitErr)
			}
			if result.Created {
				n.Success(constants.MsgAdded)
			} else {
				n.Success("Quote updated")
			}
			return cmdutil.Render(cmd, app, output.Record(result.Record))
		},
	}
	cmd.Flags().StringP("category", "c", constants.DefaultUserCategory, "Category of the quote")
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <text>",
		Aliases: []string{"rm"},
		GroupID: "core",
		Short:   "Remove a quote by its text",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			n := cmdutil.Notifier(cmd, app)
			if err := client.Remove(text); err != nil {
				if !errors.IsPersistence(err) {
					return err
				}
				n.Warn("Removal kept in memory only: %v", err)
			}
			n.Success("Removed %q", text)
			return nil
		},
	}
}

// NewCurrentCommand creates the current command.
func NewCurrentCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "current",
		GroupID: "core",
		Short:   "Show the last displayed quote, or pick one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return show(cmd, app, client.Current)
		},
	}
}

// NewNextCommand creates the next command.
func NewNextCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "next",
		GroupID: "core",
		Short:   "Show a random quote from the selected category",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			return show(cmd, app, client.Next)
		},
	}
}

func show(cmd *cobra.Command, app application.Application, pick func() (records.Record, error)) error {
	rec, err := pick()
	if err != nil {
		if errors.IsNotFound(err) {
			cmdutil.Notifier(cmd, app).Warn(constants.MsgEmpty)
			return nil
		}
		return err
	}
	return cmdutil.Render(cmd, app, output.Record(rec))
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "categories",
		GroupID: "core",
		Short:   "List distinct categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			selected := client.Filter()
			data := output.Data{Headers: []string{"Category", "Quotes", "Selected"}}
			all := client.All()
			for _, category := range all.Categories() {
				mark := ""
				if strings.EqualFold(category, selected) {
					mark = "*"
				}
				data.Rows = append(data.Rows, []string{category, strconv.Itoa(len(all.InCategory(category))), mark})
			}

			format, err := cmdutil.Format(app)
			if err != nil {
				return err
			}
			if format == output.FormatJSON || format == output.FormatYAML {
				return cmdutil.Render(cmd, app, map[string]any{
					"categories": all.Categories(),
					"selected":   selected,
				})
			}
			return cmdutil.Render(cmd, app, data)
		},
	}
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "filter [category]",
		GroupID: "core",
		Short:   "Show or select the category filter",
		Long: `Without arguments, filter prints the selected category.
With a category, it selects it for list, current and next. Use "all" to clear it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err := io.WriteString(cmd.OutOrStdout(), client.Filter()+"\n")
				return err
			}
			n := cmdutil.Notifier(cmd, app)
			if err := client.SetFilter(args[0]); err != nil {
				if !errors.IsPersistence(err) {
					return err
				}
				n.Warn("Filter kept in memory only: %v", err)
			}
			n.Success("Filter set to %s", client.Filter())
			return nil
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import <file|->",
		GroupID: "management",
		Short:   "Import quotes from a JSON or YAML list",
		Long: `Import merges a list of {text, category} entries into the collection.
A malformed file rejects the whole import; nothing is applied.`,
		Example: `  quotesync import quotes.json
  cat quotes.yaml | quotesync import - --as yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := fileFormat(cmdutil.MustGetString(cmd, "as"), args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			n := cmdutil.Notifier(cmd, app)
			result, err := client.Import(data, format)
			if err != nil {
				if !errors.IsPersistence(err) {
					return err
				}
				n.Warn("Import kept in memory only: %v", err)
			}
			n.Success("Imported %d new, %d updated, %d unchanged", result.Added, result.Updated, result.Unchanged)
			return nil
		},
	}
	cmd.Flags().String("as", "", "Input format: json or yaml (default from file extension)")
	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "management",
		Short:   "Export the collection as JSON or YAML",
		Example: `  quotesync export > quotes.json
  quotesync export --file quotes.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := cmdutil.MustGetString(cmd, "file")
			format, err := fileFormat(cmdutil.MustGetString(cmd, "as"), path)
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			data, err := client.Export(format)
			if err != nil {
				return err
			}
			if path == "" || path == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
				return errors.WrapIO("write", path, err)
			}
			cmdutil.Notifier(cmd, app).Success("Exported %d quotes to %s", len(client.All()), path)
			return nil
		},
	}
	cmd.Flags().String("file", "", "Write to this file instead of stdout")
	cmd.Flags().String("as", "", "Output format: json or yaml (default from file extension)")
	return cmd
}

// fileFormat picks the explicit format, else the path's extension, else JSON.
func fileFormat(explicit, path string) (records.Format, error) {
	if explicit == "" && path != "" && path != "-" {
		explicit = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return records.ParseFormat(explicit)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WrapIO("open", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, constants.MaxImportBytes+1))
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return data, nil
}
