package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	bagtraceapi "github.com/BearBump/BagTrace/internal/api/bagtrace_api"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/static"
	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/routes"
)

func writeSwagger(t *testing.T) string {
	t.Helper()
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))
	return sw
}

func newTestAPI() *bagtraceapi.BagTraceAPI {
	return bagtraceapi.New(routes.New(static.Default()), nil, nil, nil, nil)
}

func TestRunBagTraceAPI_SwaggerServed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	opts := apiOpts{
		httpAddr:    "127.0.0.1:0",
		swaggerPath: writeSwagger(t),
		onListen:    func(httpAddr string) { addrCh <- httpAddr },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- runBagTraceAPI(ctx, opts, newTestAPI()) }()

	httpAddr := <-addrCh

	resp, err := http.Get("http://" + httpAddr + "/swagger.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "\"swagger\"")

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting server to stop")
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestRunBagTraceAPI_SwaggerRequired(t *testing.T) {
	err := runBagTraceAPI(context.Background(), apiOpts{httpAddr: "127.0.0.1:0"}, newTestAPI())
	require.ErrorContains(t, err, "swaggerPath")

	err = runBagTraceAPI(context.Background(), apiOpts{
		httpAddr:    "127.0.0.1:0",
		swaggerPath: filepath.Join(t.TempDir(), "missing.json"),
	}, newTestAPI())
	require.ErrorContains(t, err, "swagger file not found")
}

func TestRouter_HealthReadyMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("bagtrace", reg)
	m.ObserveAttempt(models.ProviderAttempt{Provider: "static", Outcome: models.AttemptFound})

	ready := errors.New("pg down")
	srv := httptest.NewServer(newRouter(apiOpts{
		swaggerPath: writeSwagger(t),
		gatherer:    reg,
		ready:       func(context.Context) error { return ready },
	}, newTestAPI()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), `bagtrace_provider_attempts_total{outcome="found",provider="static"} 1`)

	resp, err = http.Get(srv.URL + "/v1/flight-route?flight=AA100&date=2024-03-15")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"originCode":"JFK"`)
}
