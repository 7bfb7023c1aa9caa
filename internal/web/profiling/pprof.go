// Package profiling mounts the runtime pprof endpoints.
//
// The endpoints expose goroutine stacks and memory contents. Only enable
// them on servers bound to a trusted interface.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// DefaultPath is where the endpoints are mounted
const DefaultPath = "/debug/pprof"

// Config holds profiling configuration
type Config struct {
	// Path is the URL prefix for the endpoints (default: "/debug/pprof")
	Path string

	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int

	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

// DefaultConfig returns default profiling configuration
func DefaultConfig() *Config {
	return &Config{
		Path:          DefaultPath,
		BlockRate:     1,
		MutexFraction: 1,
	}
}

// RegisterRoutes mounts the pprof handlers on router
func RegisterRoutes(router chi.Router, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}

	runtime.SetBlockProfileRate(config.BlockRate)
	runtime.SetMutexProfileFraction(config.MutexFraction)

	router.Route(config.Path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)

		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
}

// Handler returns a router serving only the profiling endpoints
func Handler(config *Config) http.Handler {
	router := chi.NewRouter()
	RegisterRoutes(router, config)
	return router
}
