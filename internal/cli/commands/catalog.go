package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DataVisuals/expectations/internal/catalog"
	"github.com/DataVisuals/expectations/internal/cli/ui"
	"github.com/DataVisuals/expectations/internal/form"
)

func newCatalogCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the assertion template catalog",
		Long: `Browse the dbt-expectations templates rules can be built from.

Examples:
  dqrules catalog list --filter between
  dqrules catalog show expect_column_values_to_be_between
  dqrules catalog check
  dqrules catalog audit`,
	}

	cmd.AddCommand(newCatalogListCommand(app))
	cmd.AddCommand(newCatalogShowCommand(app))
	cmd.AddCommand(newCatalogCheckCommand(app))
	cmd.AddCommand(newCatalogAuditCommand(app))

	return cmd
}

func newCatalogListCommand(app *App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			table := ui.NewTable(out, []string{"TEMPLATE", "PARAMETERS"}, &ui.TableOptions{NoColor: app.NoColor})

			for _, t := range app.Catalog.List() {
				if filter != "" && !strings.Contains(t.ID, filter) {
					continue
				}
				table.AddRow(t.Name(), strings.Join(t.Params, ", "))
			}

			if table.Len() == 0 {
				fmt.Fprint(out, ui.Info(fmt.Sprintf("No templates match %q", filter), app.NoColor))
				return nil
			}
			table.Render()
			fmt.Fprintf(out, "\n%d template(s)\n", table.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only list templates whose identifier contains this text")
	return cmd
}

func newCatalogShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <template>",
		Short:             "Show a template's parameters and how each is asked for",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTemplates,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := app.Catalog.Resolve(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.Header(out, tmpl.DisplayName(), app.NoColor)

			kv := ui.NewKeyValueTable(out, app.NoColor)
			kv.AddRow("Identifier", tmpl.ID)
			kv.AddRow("Parameters", strings.Join(tmpl.Params, ", "))
			kv.Render()
			fmt.Fprintln(out)

			descriptors, err := form.CompileTemplate(tmpl, nil)
			if err != nil {
				return err
			}

			table := ui.NewTable(out, []string{"PARAMETER", "INPUT", "DETAILS"}, &ui.TableOptions{NoColor: app.NoColor})
			for _, d := range descriptors {
				table.AddRow(d.Name, d.Type.String(), describe(d))
			}
			table.Render()
			return nil
		},
	}
}

// describe summarizes the constraints on one prompt
func describe(d form.PromptDescriptor) string {
	var parts []string
	if d.Required {
		parts = append(parts, "required")
	}
	if d.Modifier {
		parts = append(parts, "modifier")
	}
	switch d.Type {
	case form.FixedEnum:
		parts = append(parts, "one of "+strings.Join(d.Choices, "|"))
	case form.Numeric:
		if d.Integer {
			parts = append(parts, "whole number")
		}
	case form.DelimitedList:
		parts = append(parts, fmt.Sprintf("separated by %q", d.Separator))
	case form.Date:
		parts = append(parts, "YYYY-MM-DD")
	}
	if d.Default != nil {
		parts = append(parts, fmt.Sprintf("default %v", d.Default))
	}
	return strings.Join(parts, ", ")
}

func newCatalogCheckCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every template parameter has an input type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := form.CheckCatalog(app.Catalog); err != nil {
				return fmt.Errorf("catalog check failed:\n%w", err)
			}
			app.success(cmd.OutOrStdout(), "All %d templates have complete parameter forms", app.Catalog.Len())
			return nil
		},
	}
}

func newCatalogAuditCommand(app *App) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the catalog against the upstream dbt-expectations README",
		Long: `Fetch the upstream dbt-expectations documentation and list every
expectation it mentions that the catalog does not contain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			spinner := ui.NewSpinner(cmd.ErrOrStderr(), ui.SpinnerOptions{Message: "Fetching " + url, NoColor: app.NoColor})
			spinner.Start()
			report, err := app.Catalog.Audit(ctx, &http.Client{}, url)
			spinner.Stop()
			if err != nil {
				return err
			}

			if len(report.Missing) == 0 {
				app.success(out, "Catalog covers all %d upstream expectations", len(report.Upstream))
				return nil
			}

			color.New(color.FgYellow, color.Bold).Fprintf(out, "%d upstream expectation(s) missing from the catalog:\n", len(report.Missing))
			list := ui.NewList(out, ui.ListOptions{NoColor: app.NoColor})
			for _, id := range report.Missing {
				list.AddItem(id)
			}
			list.Render()
			return errors.New("catalog is incomplete")
		},
	}

	cmd.Flags().StringVar(&url, "url", catalog.DefaultAuditURL, "Documentation page to audit against")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Fetch timeout")
	return cmd
}
