package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DataVisuals/expectations/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&App{})
}

func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dqrules",
		Short: "Build dbt-expectations data quality rules for a dataset",
		Long: color.CyanString(`dqrules - data quality rule builder

Point dqrules at a CSV file, pick assertions from the dbt-expectations
catalog, and export a dbt schema.yml grouping them into table-level and
column-level tests. Optionally run them with dbt against the dataset.

Typical session:
  dqrules columns data/orders.csv
  dqrules add expect_column_values_to_not_be_null
  dqrules list
  dqrules export models/orders.yml
  dqrules run data/orders.csv`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Config file (default: dqrules.yml in the project)")
	rootCmd.PersistentFlags().StringVar(&app.sessionID, "session", "", "Session to edit (default: session.id from config)")
	rootCmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewCompletionCommand())
	rootCmd.AddCommand(newCatalogCommand(app))
	rootCmd.AddCommand(newColumnsCommand(app))
	rootCmd.AddCommand(newAddCommand(app))
	rootCmd.AddCommand(newRemoveCommand(app))
	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newClearCommand(app))
	rootCmd.AddCommand(newExportCommand(app))
	rootCmd.AddCommand(newLoadCommand(app))
	rootCmd.AddCommand(newSaveCommand(app))
	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newServeCommand(app))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the dqrules version, Git commit, build date, and Go version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "dqrules version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	app := &App{}
	rootCmd := newRootCommand(app)
	defer app.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(rootCmd.ErrOrStderr(), ui.FormatRuleError(err, app.NoColor))
		return err
	}
	return nil
}
