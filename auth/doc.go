// Package auth guards diagnostic health endpoints with bearer JWTs.
//
// Liveness and readiness routes are meant for orchestrators and stay open.
// The per-check and detailed routes reveal dependency topology, so
// deployments can require an HMAC-signed token for them:
//
//	v, err := auth.NewJWTVerifier(auth.JWTConfig{Secret: key, Issuer: "ops"})
//	if err != nil { ... }
//	r.Mount("/health", chihealth.Routes(reg, chihealth.Options{Guard: v.Middleware}))
package auth
