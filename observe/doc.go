// Package observe instruments health checks with OpenTelemetry traces and
// metrics and zap logging.
//
// It is a pure instrumentation library: it never runs checks on its own.
// Wrap each check before registering it:
//
//	mw, err := observe.MiddlewareFromObserver(obs)
//	if err != nil { ... }
//	reg.MustRegister(mw.Wrap(redischeck.New(client)))
package observe
