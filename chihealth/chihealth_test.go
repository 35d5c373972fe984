package chihealth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/pulsecheck/health"
)

func newRegistry() *health.Registry {
	reg := health.NewRegistry("test")
	reg.MustRegister(
		health.NewCheckFunc(health.CheckConfig{Name: "db", Readiness: true}, func(ctx context.Context) (health.Result, error) {
			return health.Healthy(time.Millisecond), nil
		}),
		health.NewCheckFunc(health.CheckConfig{Name: "queue"}, func(ctx context.Context) (health.Result, error) {
			return health.Unhealthy(errors.New("no workers")), nil
		}),
	)
	return reg
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	r := chi.NewRouter()
	r.Mount("/health", Routes(newRegistry(), Options{}))

	tests := []struct {
		path       string
		wantCode   int
		wantStatus string
		wantChecks int
	}{
		{"/health/", http.StatusOK, "HEALTHY", 0},
		{"/health/live", http.StatusOK, "HEALTHY", 0},
		{"/health/ready", http.StatusOK, "HEALTHY", 1},
		{"/health/checks", http.StatusServiceUnavailable, "UNHEALTHY", 2},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(t, r, tt.path)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body struct {
				Status string                     `json:"status"`
				Checks map[string]json.RawMessage `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Len(t, body.Checks, tt.wantChecks)
		})
	}
}

func TestRoutes_SingleCheck(t *testing.T) {
	r := chi.NewRouter()
	r.Mount("/health", Routes(newRegistry(), Options{}))

	assert.Equal(t, http.StatusOK, serve(t, r, "/health/checks/db").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, r, "/health/checks/queue").Code)

	rec := serve(t, r, "/health/checks/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"health: check not found"}`, rec.Body.String())
}

func TestRoutes_Guard(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	r := chi.NewRouter()
	r.Mount("/health", Routes(newRegistry(), Options{Guard: deny}))

	assert.Equal(t, http.StatusOK, serve(t, r, "/health/live").Code)
	assert.Equal(t, http.StatusOK, serve(t, r, "/health/ready").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, r, "/health/checks").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, r, "/health/checks/db").Code)
}
