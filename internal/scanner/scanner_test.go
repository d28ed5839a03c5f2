package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/prober"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanner(t *testing.T, serverURL string) (*Scanner, *urlhandler.Target) {
	t.Helper()
	client, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)
	target, err := urlhandler.NewTargetWithBase(serverURL)
	require.NoError(t, err)

	p := prober.New(client, config.NewDefaultProbeConfig(), zerolog.Nop()).ForTarget(target)
	return NewDefault(p, config.NewDefaultProbeConfig(), zerolog.Nop()), target
}

func TestScanCommonEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1}]`))
		case "/graphql":
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s, target := newScanner(t, server.URL)
	results := s.ScanCommonEndpoints(context.Background(), target)

	require.Len(t, results, len(config.CommonEndpoints))
	for i, r := range results {
		assert.Equal(t, target.URL(config.CommonEndpoints[i]), r.URL, "results keep list order")
		assert.Equal(t, models.FoundInCommonEndpoints, r.FoundIn)
	}

	var open []models.EndpointResult
	for _, r := range results {
		if r.Open {
			open = append(open, r)
		}
	}
	require.Len(t, open, 1)
	assert.Equal(t, target.URL("/api/users"), open[0].URL)
	assert.Equal(t, models.DataKindJSON, open[0].DataType)
}

func TestScanSensitiveFiles_EnvExposure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		exposed bool
	}{
		{name: "served", status: http.StatusOK, exposed: true},
		{name: "missing", status: http.StatusNotFound, exposed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/.env" {
					w.WriteHeader(tt.status)
					return
				}
				http.NotFound(w, r)
			}))
			defer server.Close()

			s, target := newScanner(t, server.URL)
			results := s.ScanSensitiveFiles(context.Background(), target)
			require.Len(t, results, len(config.SensitiveFiles))

			for _, r := range results {
				if r.URL == target.URL("/.env") {
					assert.Equal(t, tt.status, r.Status)
					assert.Equal(t, tt.exposed, r.Exposed)
				} else {
					assert.False(t, r.Exposed)
				}
			}
		})
	}
}

type countingProber struct {
	inFlight int32
	peak     int32
	mu       sync.Mutex
	seen     []string
}

func (c *countingProber) Probe(ctx context.Context, rawURL string) models.EndpointResult {
	n := atomic.AddInt32(&c.inFlight, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if n <= p || atomic.CompareAndSwapInt32(&c.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)

	c.mu.Lock()
	c.seen = append(c.seen, rawURL)
	c.mu.Unlock()
	return models.EndpointResult{URL: rawURL, Status: 404}
}

func (c *countingProber) CheckExposure(ctx context.Context, rawURL string) models.SensitiveFileResult {
	return models.SensitiveFileResult{URL: rawURL, Status: 404}
}

func TestScanCommonEndpoints_BoundedConcurrency(t *testing.T) {
	target, err := urlhandler.NewTarget("example.com")
	require.NoError(t, err)

	cp := &countingProber{}
	s := New(cp, config.CommonEndpoints, config.SensitiveFiles, 5, zerolog.Nop())
	results := s.ScanCommonEndpoints(context.Background(), target)

	assert.Len(t, results, len(config.CommonEndpoints))
	assert.LessOrEqual(t, atomic.LoadInt32(&cp.peak), int32(5))
	assert.Len(t, cp.seen, len(config.CommonEndpoints))
}
