package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DataVisuals/expectations/internal/catalog"
	"github.com/DataVisuals/expectations/internal/cli/ui"
	"github.com/DataVisuals/expectations/internal/dataset"
	"github.com/DataVisuals/expectations/internal/document"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/form"
	"github.com/DataVisuals/expectations/internal/rules"
	"github.com/DataVisuals/expectations/internal/web/session"
)

func newColumnsCommand(app *App) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "columns <file.csv>",
		Short: "Read a dataset's columns into the session",
		Long: `Read the header row of a CSV file. Its columns become the choices
offered for column parameters, and the file name becomes the model name
unless --model is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := dataset.ReadFile(args[0])
			if err != nil {
				return err
			}
			if model == "" {
				model = dataset.ModelName(args[0])
			}

			if _, err := app.update(cmd.Context(), func(sess *session.Session, _ *rules.Registry) error {
				sess.Columns = columns
				sess.Model = model
				return nil
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			app.success(out, "Read %d column(s) for model %s", len(columns), model)
			list := ui.NewList(out, ui.ListOptions{NoColor: app.NoColor})
			for _, c := range columns {
				list.AddItem(c)
			}
			list.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default: file name without extension)")
	return cmd
}

func newAddCommand(app *App) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "add [template]",
		Short: "Add a rule",
		Long: `Add an assertion to the session. Without arguments the template is
picked from a menu; without --param each parameter is prompted for.

Examples:
  dqrules add
  dqrules add expect_column_values_to_be_between
  dqrules add expect_column_values_to_be_between -p column=amount -p min_value=0`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTemplates,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sess, _, err := app.view(ctx)
			if err != nil {
				return err
			}
			if len(sess.Columns) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("No dataset columns loaded; column names will not be checked. Run: dqrules columns <file.csv>", app.NoColor))
			}

			tmpl, err := pickTemplate(app, args)
			if err != nil {
				return err
			}

			var inputs map[string]any
			if len(params) > 0 {
				inputs, err = parseParams(params)
			} else {
				var descriptors []form.PromptDescriptor
				descriptors, err = form.CompileTemplate(tmpl, sess.Columns)
				if err == nil {
					inputs, err = ui.AskAll(app.Prompter, descriptors)
				}
			}
			if err != nil {
				return err
			}

			inst, err := form.Build(tmpl, sess.Columns, inputs)
			if err != nil {
				return err
			}

			var position int
			if _, err := app.update(ctx, func(_ *session.Session, reg *rules.Registry) error {
				if err := reg.Append(inst); err != nil {
					return err
				}
				position = reg.Len()
				return nil
			}); err != nil {
				return err
			}

			app.success(out, "Added rule %d: %s", position, describeInstance(inst))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter as name=value (repeatable); skips prompting")
	return cmd
}

// pickTemplate resolves the template argument or asks for one by display name
func pickTemplate(app *App, args []string) (*catalog.Template, error) {
	if len(args) == 1 {
		return app.Catalog.Resolve(args[0])
	}

	templates := app.Catalog.List()
	options := make([]string, len(templates))
	byLabel := make(map[string]*catalog.Template, len(templates))
	for i, t := range templates {
		label := t.DisplayName()
		if _, taken := byLabel[label]; taken {
			label = t.ID
		}
		options[i] = label
		byLabel[label] = t
	}

	choice, err := app.Prompter.Select("Select a rule:", options, "Templates from the dbt-expectations package")
	if err != nil {
		return nil, err
	}
	return byLabel[choice], nil
}

// parseParams turns name=value flags into raw inputs for form.Build
func parseParams(params []string) (map[string]any, error) {
	inputs := make(map[string]any, len(params))
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--param %q: expected name=value", p)
		}
		inputs[name] = value
	}
	return inputs, nil
}

// describeInstance renders "Display name on column" for messages
func describeInstance(inst rules.Instance) string {
	label := catalog.DisplayName(inst.Test)
	if col, ok := inst.Column(); ok {
		return fmt.Sprintf("%s on %s", label, col)
	}
	return label + " (table)"
}

// formatParams renders every parameter but the column as name=value
func formatParams(p rules.Params) string {
	parts := make([]string, 0, p.Len())
	for _, param := range p {
		if param.Name == rules.KeyColumn {
			continue
		}
		value := fmt.Sprint(param.Value)
		if list, ok := param.Value.([]string); ok {
			value = strings.Join(list, ",")
		}
		parts = append(parts, param.Name+"="+value)
	}
	return strings.Join(parts, " ")
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the session's rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, reg, err := app.view(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if reg.Len() == 0 {
				fmt.Fprint(out, ui.Info("No rules yet. Add one with: dqrules add", app.NoColor))
				return nil
			}

			if model := app.model("", sess); model != "" {
				ui.Header(out, "Rules for "+model, app.NoColor)
			}

			table := ui.NewTable(out, []string{"#", "RULE", "COLUMN", "PARAMETERS"}, &ui.TableOptions{NoColor: app.NoColor})
			instances := reg.All()
			for i, inst := range instances {
				col, _ := inst.Column()
				table.AddRow(strconv.Itoa(i+1), catalog.DisplayName(inst.Test), col, formatParams(inst.Params))
			}
			table.Render()

			for _, problem := range document.Validate(instances, app.Catalog) {
				app.warn(cmd.ErrOrStderr(), problem)
			}
			return nil
		},
	}
}

func newRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number>",
		Short: "Remove a rule by its number in 'dqrules list'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("rule number must be an integer, got %q", args[0])
			}

			var removed rules.Instance
			if _, err := app.update(cmd.Context(), func(_ *session.Session, reg *rules.Registry) error {
				if n < 1 || n > reg.Len() {
					return dqerrors.IndexOutOfRange(n, reg.Len())
				}
				removed, err = reg.Remove(n - 1)
				return err
			}); err != nil {
				return err
			}

			app.success(cmd.OutOrStdout(), "Removed rule %d: %s", n, describeInstance(removed))
			return nil
		},
	}
}

func newClearCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every rule from the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var count int
			if _, err := app.update(cmd.Context(), func(_ *session.Session, reg *rules.Registry) error {
				count = reg.Len()
				reg.Clear()
				return nil
			}); err != nil {
				return err
			}
			app.success(cmd.OutOrStdout(), "Removed %d rule(s)", count)
			return nil
		},
	}
}
