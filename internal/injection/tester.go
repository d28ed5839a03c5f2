// Package injection runs a benign differential SQL-injection probe against
// parameterized URLs.
package injection

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
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
)

// Tester probes query parameters with the payload table. Requests that fail
// count as "not vulnerable" for that attempt; nothing is retried.
type Tester struct {
	client    *httpclient.HTTPClient
	cfg       config.InjectionConfig
	timeout   time.Duration
	payloads  []string
	templates []string
	evidence  *evidenceBuilder
	target    *urlhandler.Target
	logger    zerolog.Logger
}

// New creates a tester over the built-in payload, template and signature tables
func New(client *httpclient.HTTPClient, cfg config.InjectionConfig, timeout time.Duration, logger zerolog.Logger) (*Tester, error) {
	signatures, err := compileSignatures(config.DatabaseErrorSignatures)
	if err != nil {
		return nil, common.WrapError(err, "failed to compile database error signatures")
	}
	if timeout <= 0 {
		timeout = config.DefaultProbeTimeout
	}

	return &Tester{
		client:    client,
		cfg:       cfg,
		timeout:   timeout,
		payloads:  append([]string(nil), config.InjectionPayloads...),
		templates: append([]string(nil), config.InjectionTemplates...),
		evidence:  newEvidenceBuilder(signatures, cfg.LengthDivergenceChars, cfg.EvidenceSnippetChars),
		logger:    logger.With().Str("component", "InjectionTester").Logger(),
	}, nil
}

// ForTarget returns a copy that refuses URLs outside the target's scope
func (t *Tester) ForTarget(target *urlhandler.Target) *Tester {
	scoped := *t
	scoped.target = target
	scoped.logger = t.logger.With().Str("target", target.Domain).Logger()
	return &scoped
}

// TestURL probes the first parameters of rawURL. A URL without a query is
// reported as not vulnerable without any request.
func (t *Tester) TestURL(ctx context.Context, rawURL string) models.InjectionFinding {
	finding := models.InjectionFinding{URL: rawURL, VulnerableParams: []models.VulnerableParam{}}

	u, err := url.Parse(rawURL)
	if err != nil {
		return finding
	}
	params := queryParamNames(u.RawQuery)
	if len(params) == 0 {
		return finding
	}
	if len(params) > t.cfg.MaxParams {
		params = params[:t.cfg.MaxParams]
	}

	status, _, err := t.fetch(ctx, rawURL)
	if err != nil || status == http.StatusNotFound {
		t.logger.Debug().Str("url", rawURL).Int("status", status).Err(err).Msg("Skipping injection test, baseline unavailable")
		return finding
	}

	payloads := t.payloads
	if len(payloads) > t.cfg.MaxPayloads {
		payloads = payloads[:t.cfg.MaxPayloads]
	}

	for _, param := range params {
		for _, payload := range payloads {
			if ctx.Err() != nil {
				return t.finish(finding)
			}
			if hit, ok := t.tryPayload(ctx, u, rawURL, param, payload); ok {
				finding.VulnerableParams = append(finding.VulnerableParams, hit)
				break
			}
		}
	}
	return t.finish(finding)
}

// tryPayload sends one payload request and one fresh baseline request
func (t *Tester) tryPayload(ctx context.Context, u *url.URL, rawURL, param, payload string) (models.VulnerableParam, bool) {
	_, payloadBody, err := t.fetch(ctx, withParam(u, param, payload))
	if err != nil {
		return models.VulnerableParam{}, false
	}
	_, baselineBody, err := t.fetch(ctx, rawURL)
	if err != nil {
		return models.VulnerableParam{}, false
	}

	hit, ok := t.evidence.evaluate(param, payload, baselineBody, payloadBody)
	if ok {
		t.logger.Info().
			Str("url", rawURL).
			Str("parameter", param).
			Str("evidence_type", string(hit.EvidenceType)).
			Str("dbms", hit.DBMS).
			Msg("Injectable parameter found")
	}
	return hit, ok
}

func (t *Tester) finish(finding models.InjectionFinding) models.InjectionFinding {
	if len(finding.VulnerableParams) > 0 {
		finding.Vulnerable = true
		finding.Severity = t.cfg.Severity
	}
	return finding
}

func (t *Tester) fetch(ctx context.Context, rawURL string) (int, string, error) {
	if t.target != nil && !t.target.InScope(rawURL) {
		return 0, "", common.NewScopeError(rawURL, t.target.Domain)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if t.target != nil {
		ctx = httpclient.ContextWithRedirectGuard(ctx, t.target.InScopeURL)
	}

	resp, err := t.client.Get(ctx, rawURL)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(resp.Body), nil
}

// SelectCandidates lists the URLs to test: the CMS templates on target first,
// then discovered injection candidates, deduplicated and capped
func (t *Tester) SelectCandidates(target *urlhandler.Target, discovered []models.DiscoveredURL) []string {
	limit := t.cfg.CandidateCap
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)

	add := func(raw string) {
		if len(out) >= limit {
			return
		}
		normalized, err := urlhandler.NormalizeURL(raw)
		if err != nil || !target.InScope(normalized) {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}

	for _, tmpl := range t.templates {
		add(target.URL(tmpl))
	}
	for _, d := range discovered {
		if extractor.IsInjectionCandidate(d.URL) {
			add(d.URL)
		}
	}
	return out
}

// TestAll tests urls in bounded batches and returns only vulnerable findings,
// in input order
func (t *Tester) TestAll(ctx context.Context, urls []string) []models.InjectionFinding {
	bp := batchprocessor.NewBatchProcessor(batchprocessor.BatchProcessorConfig{
		BatchSize: t.cfg.BatchSize,
		Name:      "injection",
	}, t.logger)

	results, _ := batchprocessor.Map(ctx, bp, urls, t.TestURL)

	vulnerable := make([]models.InjectionFinding, 0)
	for _, f := range results {
		if f.Vulnerable {
			vulnerable = append(vulnerable, f)
		}
	}
	t.logger.Info().Int("tested", len(results)).Int("vulnerable", len(vulnerable)).Msg("Injection testing finished")
	return vulnerable
}
