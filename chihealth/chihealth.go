// Package chihealth mounts health endpoints on a chi router.
package chihealth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/pulsecheck/health"
)

// Options configures the mounted routes.
type Options struct {
	// Guard wraps the diagnostic routes (/checks and /checks/{name}).
	// Liveness and readiness are never guarded so orchestrators can probe
	// them without credentials.
	Guard func(http.Handler) http.Handler
}

// Routes returns a router serving:
//
//	GET /                liveness
//	GET /live            liveness
//	GET /ready           readiness
//	GET /checks          every check
//	GET /checks/{name}   one check
//
// Mount it under a prefix, for example r.Mount("/health", chihealth.Routes(reg, opts)).
func Routes(reg *health.Registry, opts Options) chi.Router {
	r := chi.NewRouter()

	live := health.LivenessHandler(reg)
	r.Get("/", live)
	r.Get("/live", live)
	r.Get("/ready", health.ReadinessHandler(reg))

	r.Group(func(r chi.Router) {
		if opts.Guard != nil {
			r.Use(opts.Guard)
		}
		r.Get("/checks", health.DetailedHandler(reg))
		r.Get("/checks/{name}", func(w http.ResponseWriter, req *http.Request) {
			health.ServeCheck(w, req, reg, chi.URLParam(req, "name"))
		})
	})

	return r
}
