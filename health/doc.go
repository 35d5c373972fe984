// Package health aggregates dependency health checks into liveness and
// readiness responses.
//
// # Core Concepts
//
// A Check probes one dependency and reports a Result whose Status is
// StatusHealthy, StatusDegraded or StatusUnhealthy. Each check carries an
// immutable CheckConfig: its name, whether it gates readiness, its timeout
// and an optional degrade threshold above which a successful probe is
// reported as degraded.
//
// Checks report expected failures through the Result, never through a panic
// or the returned error. Probe implements the policy shared by dependency
// checks: a private timeout, off-loading the client call to its own
// goroutine, latency classification and classified error messages.
//
// # Running Checks
//
// A Registry runs checks concurrently under a concurrency limit and folds
// their statuses with Combine:
//
//	reg := health.NewRegistry("production", health.WithMaxConcurrency(4))
//	reg.MustRegister(dbCheck, cacheCheck, queueCheck)
//
//	live := reg.Liveness()                // no I/O
//	ready := reg.Readiness(ctx)           // readiness checks only
//	all := reg.Run(ctx, false)            // every check
//
// One check timing out, failing, panicking or returning an error never
// affects another check's entry in the response.
//
// # HTTP Endpoints
//
// The package provides net/http handlers for the common probe patterns.
// Healthy and degraded map to 200, unhealthy to 503:
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, reg, "/health")
package health
