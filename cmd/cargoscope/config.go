// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/config"
)

var errNotFileStore = errors.New("configuration is not file backed")

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the cargoscope configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newConfigShowCommand(app),
		newConfigPathCommand(app),
		newConfigInitCommand(app),
		newConfigSetRootCommand(app),
		newConfigListCommand(app, "favorite", "Mark a project as favorite", (*config.Config).WithFavorite),
		newConfigListCommand(app, "hide", "Hide a project from scan results", (*config.Config).WithHidden),
		newConfigIDECommand(app),
	)
	return cmd
}

func newConfigShowCommand(app *App) *cobra.Command {
	var format outputFormat
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration. The default output is the CUE document
that 'config init' would write; --format json|yaml prints the same values
in structured form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format.structured() {
				return writeStructured(app.stdout, format, app.cfg)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func newConfigPathCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := fileStore(app)
			if err != nil {
				return err
			}
			p, err := fs.Path()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, p)
			return nil
		},
	}
}

func newConfigInitCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file unless one exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := fileStore(app)
			if err != nil {
				return err
			}
			p, err := fs.Path()
			if err != nil {
				return err
			}
			created, err := fs.Init(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), p)
			} else {
				fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render(p+" already exists"))
			}
			return nil
		},
	}
}

func newConfigSetRootCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-root <dir>",
		Short: "Set the default scan root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := app.saveConfig(cmd.Context(), app.cfg.WithScanRoot(root)); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Scan root set to %s\n", SuccessStyle.Render("✓"), root)
			return nil
		},
	}
}

// newConfigListCommand builds the favorite and hide commands, which toggle
// membership of a project path in a config list.
func newConfigListCommand(app *App, use, short string, with func(*config.Config, string, bool) *config.Config) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   use + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := app.saveConfig(cmd.Context(), with(app.cfg, path, !remove)); err != nil {
				return err
			}
			verb := "Added"
			if remove {
				verb = "Removed"
			}
			fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), verb, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the path instead of adding it")
	return cmd
}

func newConfigIDECommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ide <command>",
		Short: "Set the editor command used to open projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPreferredIDE(cmd.Context(), app, args[0])
		},
	}
}

func setPreferredIDE(ctx context.Context, app *App, ide string) error {
	if err := app.saveConfig(ctx, app.cfg.WithPreferredIDE(ide)); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s Preferred IDE set to %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(ide))
	return nil
}

func fileStore(app *App) (*config.FileStore, error) {
	fs, ok := app.Config.(*config.FileStore)
	if !ok {
		return nil, errNotFileStore
	}
	return fs, nil
}
