// Package ginhealth mounts health endpoints on a gin router.
package ginhealth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/pulsecheck/health"
)

// Register mounts the health routes on routes, typically a group such as
// router.Group("/health"):
//
//	GET ""               liveness
//	GET /live            liveness
//	GET /ready           readiness
//	GET /checks          every check
//	GET /checks/:name    one check
//
// guard handlers run before the diagnostic /checks routes only.
func Register(routes gin.IRoutes, reg *health.Registry, guard ...gin.HandlerFunc) {
	live := gin.WrapF(health.LivenessHandler(reg))
	routes.GET("", live)
	routes.GET("/live", live)
	routes.GET("/ready", gin.WrapF(health.ReadinessHandler(reg)))

	routes.GET("/checks", chain(guard, gin.WrapF(health.DetailedHandler(reg)))...)
	routes.GET("/checks/:name", chain(guard, func(c *gin.Context) {
		health.ServeCheck(c.Writer, c.Request, reg, c.Param("name"))
	})...)
}

func chain(guard []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guard)+1)
	out = append(out, guard...)
	return append(out, h)
}

// Guard adapts net/http middleware, such as auth.JWTVerifier.Middleware,
// to a gin handler. The request is aborted unless the middleware calls
// through to the next handler.
func Guard(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}
