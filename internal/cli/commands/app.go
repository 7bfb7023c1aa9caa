package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/bridge"
	"github.com/DataVisuals/expectations/internal/catalog"
	"github.com/DataVisuals/expectations/internal/cli/config"
	"github.com/DataVisuals/expectations/internal/cli/ui"
	"github.com/DataVisuals/expectations/internal/logging"
	"github.com/DataVisuals/expectations/internal/rules"
	"github.com/DataVisuals/expectations/internal/web/session"
)

// App carries what commands share. Fields left nil are filled from the
// config on first use; tests set them up front.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Prompter ui.Prompter
	Runner   bridge.Runner
	NoColor  bool

	configPath string
	sessionID  string
	ownsStore  bool
}

func (a *App) init(cmd *cobra.Command) error {
	if a.NoColor {
		color.NoColor = true
	}

	if a.Config == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.Config = cfg
	}

	if a.Logger == nil {
		logger, err := logging.NewWithWriter(a.Config.Log.Level, a.Config.Log.Format, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.Logger = logger
	}

	if a.Catalog == nil {
		a.Catalog = catalog.Default()
	}
	if a.Prompter == nil {
		a.Prompter = ui.NewSurveyPrompter()
	}
	return nil
}

// sessions opens the configured store on first use
func (a *App) sessions(ctx context.Context) (*session.Manager, error) {
	if a.Sessions != nil {
		return a.Sessions, nil
	}

	store, err := session.Open(ctx, a.Config.Session.Options(), a.Logger)
	if err != nil {
		return nil, err
	}
	a.Sessions = session.NewManager(store, a.Config.Session.TTL, a.Logger)
	a.ownsStore = true
	return a.Sessions, nil
}

// currentID is the session the CLI edits: --session, else session.id
func (a *App) currentID() string {
	if a.sessionID != "" {
		return a.sessionID
	}
	return a.Config.Session.ID
}

// view loads the current session, treating a missing one as empty
func (a *App) view(ctx context.Context) (*session.Session, *rules.Registry, error) {
	mgr, err := a.sessions(ctx)
	if err != nil {
		return nil, nil, err
	}
	sess, reg, err := mgr.View(ctx, a.currentID())
	if session.IsNotFound(err) {
		sess = session.NewSession(a.currentID(), a.Config.Session.TTL)
		reg, err = sess.Registry()
	}
	return sess, reg, err
}

// update applies fn to the current session, creating it if needed
func (a *App) update(ctx context.Context, fn func(*session.Session, *rules.Registry) error) (*session.Session, error) {
	mgr, err := a.sessions(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := mgr.Open(ctx, a.currentID()); err != nil {
		return nil, err
	}
	return mgr.Update(ctx, a.currentID(), fn)
}

// model picks the model name: explicit flag, then session, then config
func (a *App) model(flag string, sess *session.Session) string {
	switch {
	case flag != "":
		return flag
	case sess != nil && sess.Model != "":
		return sess.Model
	default:
		return a.Config.Model
	}
}

func (a *App) runner() bridge.Runner {
	if a.Runner == nil {
		a.Runner = bridge.NewExecRunner(a.Config.Bridge.Engine)
	}
	return a.Runner
}

// Close releases the store if this App opened it
func (a *App) Close() error {
	var errs []error
	if a.ownsStore && a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
		a.Sessions = nil
		a.ownsStore = false
	}
	if a.Logger != nil {
		// stderr cannot always be synced; ignore that failure
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}

// warn prints a non-fatal error block
func (a *App) warn(w io.Writer, err error) {
	fmt.Fprint(w, ui.FormatRuleError(err, a.NoColor))
}

func (a *App) success(w io.Writer, format string, args ...any) {
	ui.WriteSuccess(w, fmt.Sprintf(format, args...), a.NoColor)
}
