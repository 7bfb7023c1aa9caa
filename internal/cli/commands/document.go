package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/document"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/rules"
	"github.com/DataVisuals/expectations/internal/web/session"
)

func newExportCommand(app *App) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "export [file.yml]",
		Short: "Write the dbt schema document for the session's rules",
		Long: `Render the rules as a dbt schema.yml: table-level assertions under the
model's tests, column assertions grouped under each column. Writes to
stdout when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, reg, err := app.view(cmd.Context())
			if err != nil {
				return err
			}

			name := app.model(model, sess)
			if name == "" {
				return fmt.Errorf("no model name: run 'dqrules columns <file.csv>' or pass --model")
			}

			instances := reg.All()
			for _, problem := range document.Validate(instances, app.Catalog) {
				app.warn(cmd.ErrOrStderr(), problem)
			}

			out, err := document.Compile(instances, name)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(out)
				return err
			}
			if err := writeFile(args[0], out); err != nil {
				return err
			}
			app.success(cmd.OutOrStdout(), "Wrote %d rule(s) for %s to %s", len(instances), name, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default: the session's)")
	return cmd
}

func newLoadCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.yml>",
		Short: "Replace the session's rules with a saved or exported document",
		Long: `Load rules from a document written by 'dqrules save' (a top-level
expectations list) or 'dqrules export' (a dbt schema document). A document
that cannot be read leaves the current rules untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			loaded, err := document.Decode(text)
			if err != nil {
				if dqerrors.HasCode(err, dqerrors.ErrMalformedDocument) {
					app.Logger.Warn("document not loaded", zap.String("path", args[0]), zap.Error(err))
					app.warn(cmd.ErrOrStderr(), err)
					return nil
				}
				return err
			}

			if _, err := app.update(cmd.Context(), func(sess *session.Session, reg *rules.Registry) error {
				if loaded.Model != "" && sess.Model == "" {
					sess.Model = loaded.Model
				}
				return reg.Replace(loaded.Instances)
			}); err != nil {
				return err
			}

			app.success(cmd.OutOrStdout(), "Loaded %d rule(s) from %s (%s)", len(loaded.Instances), args[0], loaded.Shape)
			return nil
		},
	}
}

func newSaveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save [file.yml]",
		Short: "Write the session's rules as an expectations list",
		Long: `Write the rules in the flat form 'dqrules load' reads back unchanged.
Writes to stdout when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := app.view(cmd.Context())
			if err != nil {
				return err
			}

			out, err := document.EncodeFlat(reg.All())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(out)
				return err
			}
			if err := writeFile(args[0], out); err != nil {
				return err
			}
			app.success(cmd.OutOrStdout(), "Saved %d rule(s) to %s", reg.Len(), args[0])
			return nil
		},
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
