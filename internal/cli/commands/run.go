package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/bridge"
	"github.com/DataVisuals/expectations/internal/cli/ui"
	"github.com/DataVisuals/expectations/internal/document"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

func newRunCommand(app *App) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "run <file.csv>",
		Short: "Run the rules against a dataset with dbt",
		Long: `Copy the dataset and the rendered schema document into the dbt project
(bridge.project_dir), then run 'dbt build' and 'dbt test' for the model and
report each result.

Examples:
  dqrules run data/orders.csv
  dqrules run data/orders.csv --model stg_orders`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, reg, err := app.view(ctx)
			if err != nil {
				return err
			}
			name := app.model(model, sess)
			if name == "" {
				return fmt.Errorf("no model name: run 'dqrules columns <file.csv>' or pass --model")
			}
			if reg.Len() == 0 {
				return fmt.Errorf("no rules to run. Add one with: dqrules add")
			}

			doc, err := document.Compile(reg.All(), name)
			if err != nil {
				return err
			}

			data, err := os.Open(args[0])
			if err != nil {
				return dqerrors.DatasetReadFailure(args[0], err)
			}
			defer data.Close()

			b := bridge.New(app.Config.Bridge.Layout(), app.runner(),
				bridge.WithTimeout(app.Config.Bridge.Timeout),
				bridge.WithLogger(app.Logger),
			)

			spinner := ui.NewSpinner(cmd.ErrOrStderr(), ui.SpinnerOptions{
				Message: fmt.Sprintf("Running %s for %s", app.Config.Bridge.Engine, name),
				NoColor: app.NoColor,
			})
			spinner.Start()
			rows, err := b.RunAndTest(ctx, data, doc, name)
			spinner.Stop()

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				renderResults(app, out, rows)
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, row := range rows {
				if !row.Passed() {
					failed++
				}
			}
			app.Logger.Info("engine run finished",
				zap.String("model", name),
				zap.Int("results", len(rows)),
				zap.Int("failed", failed),
			)

			fmt.Fprintln(out)
			if failed > 0 {
				return fmt.Errorf("%d of %d result(s) did not pass", failed, len(rows))
			}
			app.success(out, "All %d result(s) passed", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default: the session's)")
	return cmd
}

func renderResults(app *App, w io.Writer, rows []bridge.ResultRow) {
	table := ui.NewTable(w, []string{"NAME", "STATUS", "DURATION"}, &ui.TableOptions{NoColor: app.NoColor})
	for _, row := range rows {
		table.AddRow(row.Name, row.Status, fmt.Sprintf("%.2fs", row.Duration))
	}
	table.Render()

	gray := color.New(color.FgHiBlack)
	if app.NoColor {
		gray.DisableColor()
	}
	for _, row := range rows {
		if !row.Passed() && row.Message != "" {
			gray.Fprintf(w, "  %s: %s\n", row.Name, row.Message)
		}
	}
}
