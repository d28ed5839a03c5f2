package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecorder_ScanLifecycle(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	r.ScanStarted()
	assert.Contains(t, scrape(t, r), "openapi_scans_in_flight 1")

	r.ObservePhase("discovery", 2*time.Second)
	r.AddFindings("sensitive_file", 3)
	r.AddFindings("sensitive_file", 0)
	r.ScanFinished("success", 5*time.Second)

	body := scrape(t, r)
	assert.Contains(t, body, "openapi_scans_in_flight 0")
	assert.Contains(t, body, `openapi_scans_total{status="success"} 1`)
	assert.Contains(t, body, `openapi_findings_total{kind="sensitive_file"} 3`)
	assert.Contains(t, body, `openapi_phase_duration_seconds_count{phase="discovery"} 1`)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ScanStarted()
		r.ObservePhase("fixed", time.Second)
		r.AddFindings("endpoint", 1)
		r.ScanRejected()
		r.ScanFinished("error", time.Second)
	})
	assert.Nil(t, r.Registry())

	base := http.DefaultTransport
	assert.Equal(t, base, r.InstrumentRoundTripper(base))
}

func TestRecorder_InstrumentsClientTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	r, err := NewRecorder()
	require.NoError(t, err)

	client, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).
		WithTransportWrapper(r.InstrumentRoundTripper).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.Get(ctx, server.URL+"/")
	require.NoError(t, err)
	_, err = client.Get(ctx, server.URL+"/missing")
	require.NoError(t, err)

	body := scrape(t, r)
	assert.Contains(t, body, `openapi_outbound_requests_total{code="200",method="get"} 1`)
	assert.Contains(t, body, `openapi_outbound_requests_total{code="404",method="get"} 1`)
}

func TestListener_ServesMetricsAndHealth(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.ScanRejected()

	var unhealthy error
	l := NewListener(config.MetricsConfig{Path: "/metrics"}, r, func() error { return unhealthy }, zerolog.Nop())
	server := httptest.NewServer(l.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "openapi_rejected_scan_requests_total 1")

	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	unhealthy = errors.New("memory pressure")
	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "memory pressure")
}

func TestListener_StartAndShutdown(t *testing.T) {
	l := NewListener(config.MetricsConfig{ListenAddress: "127.0.0.1:0"}, nil, nil, zerolog.Nop())
	assert.Empty(t, l.Addr())
	require.NoError(t, l.Start())
	assert.NotEmpty(t, l.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, l.Shutdown(ctx))
}
