package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/crawler"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/dev-fuadhasan/openapi/internal/injection"
	"github.com/dev-fuadhasan/openapi/internal/metrics"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/prober"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	result *crawler.Result
	err    error
	panic  bool
}

func (f *fakeDiscoverer) Discover(ctx context.Context, target *urlhandler.Target) (*crawler.Result, error) {
	if f.panic {
		panic("discovery exploded")
	}
	return f.result, f.err
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><a href="/api/v2/items">items</a></body></html>`))
		case "/api/users", "/api/v2/items":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"users":[{"id":1}],"total":1}`))
		case "/.env":
			_, _ = w.Write([]byte("DB_PASSWORD=hunter2"))
		case "/product.php":
			if strings.Contains(r.URL.RawQuery, "%27") {
				_, _ = w.Write([]byte("You have an error in your SQL syntax near ''' at line 1"))
				return
			}
			_, _ = w.Write([]byte("<html>product</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type testDeps struct {
	client *httpclient.HTTPClient
	prober *prober.Prober
	tester *injection.Tester
	target *urlhandler.Target
}

func newDeps(t *testing.T, server *httptest.Server) testDeps {
	t.Helper()
	client, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)
	tester, err := injection.New(client, config.NewDefaultInjectionConfig(), 0, zerolog.Nop())
	require.NoError(t, err)
	target, err := urlhandler.NewTargetWithBase(server.URL)
	require.NoError(t, err)
	return testDeps{
		client: client,
		prober: prober.New(client, config.NewDefaultProbeConfig(), zerolog.Nop()),
		tester: tester,
		target: target,
	}
}

func build(t *testing.T, deps testDeps, d Discoverer, mutate func(*OrchestratorBuilder)) *Orchestrator {
	t.Helper()
	b := NewOrchestratorBuilder(zerolog.Nop()).
		WithProber(deps.prober).
		WithDiscoverer(d).
		WithInjectionTester(deps.tester)
	if mutate != nil {
		mutate(b)
	}
	o, err := b.Build()
	require.NoError(t, err)
	return o
}

func openURLs(report *models.ScanReport) []string {
	var out []string
	for _, r := range report.OpenAPIs {
		out = append(out, r.URL)
	}
	return out
}

func TestScan_MergesFixedBeforeDiscovered(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	discoverer := &fakeDiscoverer{result: &crawler.Result{
		Discovered: []models.DiscoveredURL{
			{URL: server.URL + "/product.php?id=1", Source: models.ProvenancePageHTML},
		},
		Endpoints: []models.EndpointResult{
			{URL: server.URL + "/api/users", Status: 200, Open: true, FoundIn: models.FoundInDeepCrawl},
			{URL: server.URL + "/api/extra", Status: 200, Open: true, FoundIn: models.FoundInDeepCrawl},
		},
		Stats: models.DiscoveryStats{DiscoveredURLs: 1},
	}}

	report, err := build(t, deps, discoverer, nil).Scan(context.Background(), deps.target)
	require.NoError(t, err)

	// /.env is on both fixed lists
	assert.Equal(t, []string{server.URL + "/api/users", server.URL + "/.env", server.URL + "/api/extra"}, openURLs(report))
	assert.Equal(t, models.FoundInCommonEndpoints, report.OpenAPIs[0].FoundIn)
	assert.Equal(t, models.DataKindJSON, report.OpenAPIs[0].DataType)

	require.Len(t, report.ExposedSensitiveFiles, 1)
	assert.Equal(t, server.URL+"/.env", report.ExposedSensitiveFiles[0].URL)

	require.Len(t, report.SQLInjectionVulnerabilities, 1)
	assert.Contains(t, report.SQLInjectionVulnerabilities[0].URL, "/product.php?id=1")
	assert.Equal(t, "MySQL", report.SQLInjectionVulnerabilities[0].VulnerableParams[0].DBMS)

	assert.Equal(t, models.ScanSummary{
		TotalOpenAPIs:          3,
		TotalExposedFiles:      1,
		TotalSQLInjectionVulns: 1,
		CommonEndpointsChecked: len(config.CommonEndpoints),
		CommonEndpointsOpen:    2,
	}, report.ScanSummary)

	assert.NotEmpty(t, report.ScanID)
	assert.Equal(t, 1, report.Discovery.DiscoveredURLs)
	// the discovered URL duplicates the /product.php template
	assert.Equal(t, len(config.InjectionTemplates), report.InjectionTested)
}

func TestScan_WithCrawlerEngine(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	engine, err := crawler.NewEngineBuilder(zerolog.Nop()).
		WithClient(deps.client).
		WithProber(deps.prober).
		Build()
	require.NoError(t, err)

	report, err := build(t, deps, engine, nil).Scan(context.Background(), deps.target)
	require.NoError(t, err)

	assert.Equal(t, []string{server.URL + "/api/users", server.URL + "/.env", server.URL + "/api/v2/items"}, openURLs(report))
	assert.Equal(t, models.FoundInDeepCrawl, report.OpenAPIs[2].FoundIn)
	assert.Equal(t, 1, report.Discovery.DeepCrawlOpen)
}

func TestScan_IDsAreUnique(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)
	o := build(t, deps, &fakeDiscoverer{result: &crawler.Result{}}, func(b *OrchestratorBuilder) {
		b.WithInjectionTester(nil)
	})

	first, err := o.Scan(context.Background(), deps.target)
	require.NoError(t, err)
	second, err := o.Scan(context.Background(), deps.target)
	require.NoError(t, err)
	assert.NotEqual(t, first.ScanID, second.ScanID)

	fixed, err := o.Scan(ContextWithScanID(context.Background(), "run-42"), deps.target)
	require.NoError(t, err)
	assert.Equal(t, "run-42", fixed.ScanID)
}

func TestScan_WithoutTesterSkipsInjection(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	discoverer := &fakeDiscoverer{result: &crawler.Result{
		Discovered: []models.DiscoveredURL{{URL: server.URL + "/product.php?id=1"}},
	}}
	o := build(t, deps, discoverer, func(b *OrchestratorBuilder) { b.WithInjectionTester(nil) })

	report, err := o.Scan(context.Background(), deps.target)
	require.NoError(t, err)
	assert.Empty(t, report.SQLInjectionVulnerabilities)
	assert.NotNil(t, report.SQLInjectionVulnerabilities)
	assert.Zero(t, report.InjectionTested)
}

func TestScan_PhaseFailureFailsScan(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	tests := []struct {
		name       string
		discoverer *fakeDiscoverer
		wantErr    string
	}{
		{
			name:       "discovery error",
			discoverer: &fakeDiscoverer{err: errors.New("frontier broke")},
			wantErr:    "frontier broke",
		},
		{
			name:       "discovery panic",
			discoverer: &fakeDiscoverer{panic: true},
			wantErr:    "discovery phase panicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := build(t, deps, tt.discoverer, nil).Scan(context.Background(), deps.target)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScan_CancelledContextFailsScan(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := build(t, deps, &fakeDiscoverer{result: &crawler.Result{}}, nil).Scan(ctx, deps.target)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestScan_RecordsMetrics(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)
	recorder, err := metrics.NewRecorder()
	require.NoError(t, err)

	o := build(t, deps, &fakeDiscoverer{result: &crawler.Result{}}, func(b *OrchestratorBuilder) {
		b.WithMetrics(recorder)
	})
	_, err = o.Scan(context.Background(), deps.target)
	require.NoError(t, err)

	_, err = build(t, deps, &fakeDiscoverer{err: errors.New("boom")}, func(b *OrchestratorBuilder) {
		b.WithMetrics(recorder)
	}).Scan(context.Background(), deps.target)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `openapi_scans_total{status="success"} 1`)
	assert.Contains(t, body, `openapi_scans_total{status="error"} 1`)
	assert.Contains(t, body, `openapi_findings_total{kind="exposed_file"} 1`)
	assert.Contains(t, body, `openapi_phase_duration_seconds_count{phase="discovery"} 2`)
}

func TestScan_NilTarget(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	_, err := build(t, deps, &fakeDiscoverer{}, nil).Scan(context.Background(), nil)
	require.Error(t, err)
}

func TestOrchestratorBuilder_Validation(t *testing.T) {
	server := newSite(t)
	deps := newDeps(t, server)

	_, err := NewOrchestratorBuilder(zerolog.Nop()).WithDiscoverer(&fakeDiscoverer{}).Build()
	assert.Error(t, err)

	_, err = NewOrchestratorBuilder(zerolog.Nop()).WithProber(deps.prober).Build()
	assert.Error(t, err)

	cfg := config.NewDefaultProbeConfig()
	cfg.FixedBatchSize = 0
	_, err = NewOrchestratorBuilder(zerolog.Nop()).
		WithProber(deps.prober).
		WithDiscoverer(&fakeDiscoverer{}).
		WithProbeConfig(cfg).
		Build()
	assert.Error(t, err)
}
