// Package crawler discovers same-scope URLs of a target: it seeds from
// robots.txt and sitemaps, crawls breadth-first within page and depth
// budgets, mines scripts for endpoints and finally probes the API-like URLs.
package crawler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/common/batchprocessor"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/extractor"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/prober"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
)

// Result is the outcome of one Discover call
type Result struct {
	Discovered []models.DiscoveredURL
	Endpoints  []models.EndpointResult
	Stats      models.DiscoveryStats
}

// Engine is stateless between calls; every Discover builds its own frontier
// and discovery set.
type Engine struct {
	client         *httpclient.HTTPClient
	prober         *prober.Prober
	cfg            config.DiscoveryConfig
	requestTimeout time.Duration
	rules          []extractor.Rule
	renderer       Renderer
	logger         zerolog.Logger
}

// EngineBuilder provides a fluent interface for creating Engine instances
type EngineBuilder struct {
	client         *httpclient.HTTPClient
	prober         *prober.Prober
	cfg            config.DiscoveryConfig
	requestTimeout time.Duration
	rules          []extractor.Rule
	renderer       Renderer
	logger         zerolog.Logger
}

// NewEngineBuilder creates a builder with default budgets
func NewEngineBuilder(logger zerolog.Logger) *EngineBuilder {
	return &EngineBuilder{
		cfg:            config.NewDefaultDiscoveryConfig(),
		requestTimeout: config.DefaultProbeTimeout,
		logger:         logger.With().Str("component", "Crawler").Logger(),
	}
}

func (b *EngineBuilder) WithClient(client *httpclient.HTTPClient) *EngineBuilder {
	b.client = client
	return b
}

func (b *EngineBuilder) WithProber(p *prober.Prober) *EngineBuilder {
	b.prober = p
	return b
}

func (b *EngineBuilder) WithConfig(cfg config.DiscoveryConfig) *EngineBuilder {
	b.cfg = cfg
	return b
}

func (b *EngineBuilder) WithRequestTimeout(timeout time.Duration) *EngineBuilder {
	b.requestTimeout = timeout
	return b
}

// WithRules replaces the default extraction rules
func (b *EngineBuilder) WithRules(rules ...extractor.Rule) *EngineBuilder {
	b.rules = rules
	return b
}

// WithRenderer enables headless rendering of the homepage
func (b *EngineBuilder) WithRenderer(r Renderer) *EngineBuilder {
	b.renderer = r
	return b
}

// Build validates the settings and creates the engine
func (b *EngineBuilder) Build() (*Engine, error) {
	if b.client == nil {
		return nil, common.NewValidationError("client", nil, "crawler requires an HTTP client")
	}
	if b.prober == nil {
		return nil, common.NewValidationError("prober", nil, "crawler requires a prober")
	}
	if b.cfg.DepthBudget <= 0 || b.cfg.PageBudget <= 0 || b.cfg.RoundSize <= 0 {
		return nil, common.NewValidationError("discovery", b.cfg, "depth, page and round budgets must be positive")
	}
	if b.requestTimeout <= 0 {
		return nil, common.NewValidationError("request_timeout", b.requestTimeout, "request timeout must be positive")
	}

	return &Engine{
		client:         b.client,
		prober:         b.prober,
		cfg:            b.cfg,
		requestTimeout: b.requestTimeout,
		rules:          b.rules,
		renderer:       b.renderer,
		logger:         b.logger,
	}, nil
}

// discoveryRun holds the state owned by one Discover call
type discoveryRun struct {
	engine    *Engine
	target    *urlhandler.Target
	extractor *extractor.Extractor
	prober    *prober.Prober
	set       *discoverySet
	frontier  *frontier
	snapshots map[string]*pageSnapshot
	scripts   map[string]struct{}
	stats     models.DiscoveryStats
	logger    zerolog.Logger
}

// Discover runs seeding, the breadth-first crawl and the deep-crawl probe for
// target. Per-page and per-script failures only reduce what is found; an
// error is returned when the crawl cannot start at all.
func (e *Engine) Discover(ctx context.Context, target *urlhandler.Target) (*Result, error) {
	if target == nil {
		return nil, common.NewValidationError("target", nil, "target is required")
	}

	start := time.Now()
	logger := e.logger.With().Str("target", target.Domain).Logger()
	run := &discoveryRun{
		engine:    e,
		target:    target,
		extractor: extractor.New(target, logger, e.rules...),
		prober:    e.prober.ForTarget(target),
		set:       newDiscoverySet(),
		frontier:  newFrontier(),
		snapshots: make(map[string]*pageSnapshot),
		scripts:   make(map[string]struct{}),
		logger:    logger,
	}

	homepage, err := urlhandler.NormalizeURL(target.URL("/"))
	if err != nil {
		return nil, common.WrapError(err, "invalid homepage URL")
	}

	run.frontier.push(homepage)
	sitemaps := run.seedFromRobots(ctx)
	run.seedFromSitemaps(ctx, sitemaps)
	run.seedFromRenderedHomepage(ctx, homepage)

	if err := run.crawl(ctx, homepage); err != nil {
		return nil, err
	}

	endpoints := run.deepCrawl(ctx)

	run.stats.DiscoveredURLs = run.set.len()
	logger.Info().
		Int("discovered", run.stats.DiscoveredURLs).
		Int("pages", run.stats.PagesFetched).
		Int("rounds", run.stats.Rounds).
		Int("scripts", run.stats.ScriptsFetched).
		Int("deep_crawl_open", run.stats.DeepCrawlOpen).
		Dur("duration", time.Since(start)).
		Msg("Discovery finished")

	return &Result{
		Discovered: run.set.list(),
		Endpoints:  endpoints,
		Stats:      run.stats,
	}, nil
}

// crawl runs rounds until the frontier is empty or a budget is spent
func (r *discoveryRun) crawl(ctx context.Context, homepage string) error {
	buf := newRoundBuffer()
	collector, err := r.newCollector(ctx, buf)
	if err != nil {
		return err
	}

	cfg := r.engine.cfg
	for round := 0; round < cfg.DepthBudget; round++ {
		if ctx.Err() != nil || r.frontier.len() == 0 || r.stats.PagesFetched >= cfg.PageBudget {
			break
		}

		n := cfg.RoundSize
		if remaining := cfg.PageBudget - r.stats.PagesFetched; remaining < n {
			n = remaining
		}
		batch := r.frontier.pop(n)
		r.stats.PagesFetched += len(batch)
		r.stats.Rounds++

		r.logger.Debug().Int("round", round).Int("pages", len(batch)).Msg("Crawl round started")

		for _, snap := range r.fetchRound(collector, buf, batch) {
			r.snapshots[snap.URL] = snap
			if !snap.isHTML() {
				continue
			}
			source := models.ProvenancePageHTML
			if snap.URL == homepage {
				source = models.ProvenanceHomepageHTML
			}
			r.processPage(ctx, snap, source, round)
		}
	}
	return nil
}

// processPage extracts links from an HTML page and mines its scripts
func (r *discoveryRun) processPage(ctx context.Context, snap *pageSnapshot, source models.Provenance, round int) {
	base, err := url.Parse(snap.FinalURL)
	if err != nil || snap.FinalURL == "" {
		base, _ = url.Parse(snap.URL)
	}
	text := string(snap.Body)

	// script URLs are never crawled as pages
	scripts := r.extractor.ScriptURLs(text, base, r.engine.cfg.ScriptsPerPage)
	for _, s := range scripts {
		r.frontier.exclude(s)
	}

	for _, u := range r.extractor.Extract(text, base) {
		r.discover(u, source, snap.URL, round)
	}

	r.processScripts(ctx, scripts, base, round)
}

// processScripts fetches the not yet fetched scripts of a page and extracts
// URLs from them against the page URL
func (r *discoveryRun) processScripts(ctx context.Context, scripts []string, pageURL *url.URL, round int) {
	var pending []string
	for _, s := range scripts {
		if len(pending) >= r.engine.cfg.ScriptFetchesPerPage {
			continue
		}
		if _, done := r.scripts[s]; done {
			continue
		}
		r.scripts[s] = struct{}{}
		pending = append(pending, s)
	}
	if len(pending) == 0 {
		return
	}

	bp := batchprocessor.NewBatchProcessor(batchprocessor.BatchProcessorConfig{
		BatchSize: r.engine.cfg.ScriptBatchSize,
		Name:      "scripts",
	}, r.logger)
	fetched, _ := batchprocessor.Map(ctx, bp, pending, func(ctx context.Context, u string) *pageSnapshot {
		snap, err := r.get(ctx, u)
		if err != nil {
			r.logger.Debug().Str("url", u).Err(err).Msg("Script fetch failed")
			return nil
		}
		return snap
	})

	r.stats.ScriptsFetched += len(fetched)
	for _, snap := range fetched {
		if snap == nil {
			continue
		}
		if _, ok := r.snapshots[snap.URL]; !ok {
			r.snapshots[snap.URL] = snap
		}
		if snap.Status != http.StatusOK {
			continue
		}
		for _, u := range r.extractor.Extract(string(snap.Body), pageURL) {
			r.discover(u, models.ProvenanceScriptFile, snap.URL, round)
		}
	}
}

// discover records u and queues it for the next round when depth allows
func (r *discoveryRun) discover(u string, source models.Provenance, foundOn string, round int) {
	r.set.add(u, source, foundOn)
	if round+1 < r.engine.cfg.DepthBudget && !extractor.IsStaticAsset(u) {
		r.frontier.push(u)
	}
}
