package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/config"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr:            "127.0.0.1:0",
		Prefix:          "/health",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
		Metrics:         true,
	}
}

func testRegistry() *health.Registry {
	reg := health.NewRegistry("test")
	reg.MustRegister(
		health.NewCheckFunc(health.CheckConfig{Name: "db", Readiness: true},
			func(context.Context) (health.Result, error) { return health.Healthy(time.Millisecond), nil }),
		health.NewCheckFunc(health.CheckConfig{Name: "search"},
			func(context.Context) (health.Result, error) {
				return health.Unhealthy(errors.New("HTTP dep failed: refused")), nil
			}),
	)
	return reg
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	srv := New(testConfig(), testRegistry(), Options{})
	h := srv.Handler()

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"status":"HEALTHY"`},
		{"/health/live", http.StatusOK, `"checks":{}`},
		{"/health/ready", http.StatusOK, `"db"`},
		{"/health/checks", http.StatusServiceUnavailable, `"search"`},
		{"/health/checks/db", http.StatusOK, `"HEALTHY"`},
		{"/health/checks/missing", http.StatusNotFound, ""},
		{"/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestServer_ReadinessSkipsDiagnosticChecks(t *testing.T) {
	rec := get(t, New(testConfig(), testRegistry(), Options{}).Handler(), "/health/ready")

	var resp health.OverallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"db"}, resp.Names())
	assert.Equal(t, "test", resp.Environment)
}

func TestServer_Guard(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	h := New(testConfig(), testRegistry(), Options{Guard: deny}).Handler()

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/health/checks").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/health/checks/db").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/health/ready").Code, "readiness is never guarded")
	assert.Equal(t, http.StatusOK, get(t, h, "/health/checks/db", "Authorization", "Bearer x").Code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pulsecheck_test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	rec := get(t, New(testConfig(), testRegistry(), Options{Gatherer: reg}).Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pulsecheck_test_total 1")

	cfg := testConfig()
	cfg.Metrics = false
	rec = get(t, New(cfg, testRegistry(), Options{Gatherer: reg}).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := New(testConfig(), testRegistry(), Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health/live")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"HEALTHY"`))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Addr = ln.Addr().String()
	err = New(cfg, testRegistry(), Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}
