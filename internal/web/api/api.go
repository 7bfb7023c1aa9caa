package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/catalog"
	"github.com/DataVisuals/expectations/internal/web/middleware"
	"github.com/DataVisuals/expectations/internal/web/profiling"
	"github.com/DataVisuals/expectations/internal/web/session"
)

// maxBodyBytes bounds document and dataset uploads
const maxBodyBytes = 32 << 20

// API serves the rule builder over HTTP. All state lives in the session
// manager; handlers hold none.
type API struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	logger   *zap.Logger
	metrics  *domainMetrics
}

// Options configures the router
type Options struct {
	// CORSOrigins lists allowed origins; empty allows any
	CORSOrigins []string

	// Registry receives the HTTP and domain collectors and backs /metrics.
	// A fresh registry with process and Go collectors is used when nil.
	Registry *prometheus.Registry

	// Profiling mounts /debug/pprof when set
	Profiling bool
}

// New creates the API
func New(cat *catalog.Catalog, sessions *session.Manager, logger *zap.Logger) *API {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{catalog: cat, sessions: sessions, logger: logger}
}

// Routes builds the router
func (a *API) Routes(opts Options) http.Handler {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	}
	httpMetrics := middleware.NewMetrics(reg)
	a.metrics = newDomainMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger, "/healthz", "/metrics"))
	r.Use(middleware.Recovery(a.logger))
	r.Use(httpMetrics.Handler())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if opts.Profiling {
		profiling.RegisterRoutes(r, profiling.DefaultConfig())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", a.listTemplates)
			r.Get("/{id}/form", a.templateForm)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.createSession)
			r.Route("/{sid}", func(r chi.Router) {
				r.Get("/", a.getSession)
				r.Delete("/", a.deleteSession)
				r.Post("/rules", a.addRule)
				r.Delete("/rules/{index}", a.removeRule)
				r.Get("/document", a.getDocument)
				r.Put("/document", a.putDocument)
				r.Post("/columns", a.uploadColumns)
			})
		})
	})

	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":    "ok",
		"templates": a.catalog.Len(),
	})
}
