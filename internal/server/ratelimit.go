package server

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonwraymond/pulsecheck/internal/config"
)

// idleClientTTL is how long the limiter of a silent client is kept.
const idleClientTTL = 5 * time.Minute

// clientLimiter applies a token bucket per client address. Every run of the
// health routes reaches the dependencies, so a misbehaving poller is cut
// off here rather than at the database.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.Cache
	logger  *zap.Logger
}

func newClientLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *clientLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	return &clientLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		clients: cache.New(idleClientTTL, 2*idleClientTTL),
		logger:  logger,
	}
}

func (l *clientLimiter) limiter(client string) *rate.Limiter {
	if v, ok := l.clients.Get(client); ok {
		l.clients.SetDefault(client, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.clients.Add(client, lim, cache.DefaultExpiration); err != nil {
		// Another request for the same client won the race.
		if v, ok := l.clients.Get(client); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (l *clientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if l.limiter(client).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		retry := time.Duration(float64(time.Second) / float64(l.limit))
		l.logger.Debug("rate limited", zap.String("client", client), zap.String("path", r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// clientAddr returns the host part of RemoteAddr, which RealIP has already
// replaced with the forwarded address when there is one.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
