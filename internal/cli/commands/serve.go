package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/form"
	"github.com/DataVisuals/expectations/internal/web/api"
	"github.com/DataVisuals/expectations/internal/web/server"
)

func newServeCommand(app *App) *cobra.Command {
	var (
		host  string
		port  int
		pprof bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rule builder HTTP API",
		Long: `Start the HTTP API. Sessions are kept in the configured session store,
so several clients can edit rules concurrently, each in their own session.

Endpoints:
  GET    /api/templates
  GET    /api/templates/{id}/form?columns=a,b
  POST   /api/sessions
  GET    /api/sessions/{sid}
  DELETE /api/sessions/{sid}
  POST   /api/sessions/{sid}/rules
  DELETE /api/sessions/{sid}/rules/{index}
  GET    /api/sessions/{sid}/document
  PUT    /api/sessions/{sid}/document
  POST   /api/sessions/{sid}/columns
  GET    /healthz
  GET    /metrics
  GET    /debug/pprof/*  (with --pprof or server.pprof)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := form.CheckCatalog(app.Catalog); err != nil {
				return fmt.Errorf("catalog check failed:\n%w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr, err := app.sessions(ctx)
			if err != nil {
				return err
			}

			cfg := app.Config.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("pprof") {
				cfg.Pprof = pprof
			}

			handler := api.New(app.Catalog, mgr, app.Logger).Routes(api.Options{
				CORSOrigins: cfg.CORSOrigins,
				Profiling:   cfg.Pprof,
			})

			srvConfig := server.DefaultConfig(handler)
			srvConfig.Address = cfg.Addr()
			if cfg.ShutdownTimeout > 0 {
				srvConfig.ShutdownTimeout = cfg.ShutdownTimeout
			}

			srv, err := server.New(srvConfig, app.Logger)
			if err != nil {
				return err
			}
			srv.RegisterHook(func(context.Context) error {
				return app.Close()
			})

			if err := srv.Listen(); err != nil {
				return err
			}
			app.success(cmd.OutOrStdout(), "Serving on http://%s (session backend: %s)", srv.Addr(), app.Config.Session.Backend)
			app.Logger.Info("api ready", zap.String("addr", srv.Addr()), zap.String("backend", app.Config.Session.Backend))

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Host to bind (default: server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to bind (default: server.port)")
	cmd.Flags().BoolVar(&pprof, "pprof", false, "Mount /debug/pprof profiling endpoints")
	return cmd
}
