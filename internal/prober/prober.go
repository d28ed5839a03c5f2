// Package prober issues single GET requests and turns the responses into
// EndpointResult values.
package prober

import (
	"context"
	"net/http"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
)

// Prober performs one request per call with its own timeout. Failures never
// escape as errors: they become status 0 results.
type Prober struct {
	client *httpclient.HTTPClient
	cfg    config.ProbeConfig
	target *urlhandler.Target
	logger zerolog.Logger
}

// New creates a prober without a scope restriction
func New(client *httpclient.HTTPClient, cfg config.ProbeConfig, logger zerolog.Logger) *Prober {
	return &Prober{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "Prober").Logger(),
	}
}

// ForTarget returns a copy that refuses URLs outside the target's scope,
// including redirect hops
func (p *Prober) ForTarget(target *urlhandler.Target) *Prober {
	scoped := *p
	scoped.target = target
	scoped.logger = p.logger.With().Str("target", target.Domain).Logger()
	return &scoped
}

// Probe fetches rawURL once and classifies a 200 response body
func (p *Prober) Probe(ctx context.Context, rawURL string) models.EndpointResult {
	resp, err := p.fetch(ctx, rawURL)
	if err != nil {
		return models.EndpointResult{URL: rawURL, Status: 0, Open: false, Error: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return models.EndpointResult{
			URL:           rawURL,
			Status:        resp.StatusCode,
			Open:          false,
			ContentType:   resp.Headers["Content-Type"],
			ContentLength: resp.ContentLength,
		}
	}

	return p.classify(rawURL, resp.StatusCode, resp.Headers["Content-Type"], resp.Body, resp.ContentLength)
}

// CheckExposure fetches rawURL once and reports whether it answered 200
func (p *Prober) CheckExposure(ctx context.Context, rawURL string) models.SensitiveFileResult {
	resp, err := p.fetch(ctx, rawURL)
	if err != nil {
		return models.SensitiveFileResult{URL: rawURL, Status: 0, Exposed: false}
	}
	return models.SensitiveFileResult{
		URL:     rawURL,
		Status:  resp.StatusCode,
		Exposed: resp.StatusCode == http.StatusOK,
	}
}

// Classify builds the result for a response fetched elsewhere
func (p *Prober) Classify(rawURL string, status int, contentType string, body []byte) models.EndpointResult {
	if status != http.StatusOK {
		return models.EndpointResult{
			URL:           rawURL,
			Status:        status,
			ContentType:   contentType,
			ContentLength: int64(len(body)),
		}
	}
	return p.classify(rawURL, status, contentType, body, int64(len(body)))
}

func (p *Prober) fetch(ctx context.Context, rawURL string) (*httpclient.HTTPResponse, error) {
	if p.target != nil && !p.target.InScope(rawURL) {
		p.logger.Warn().Str("url", rawURL).Msg("Refusing out-of-scope probe")
		return nil, common.NewScopeError(rawURL, p.target.Domain)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if p.target != nil {
		ctx = httpclient.ContextWithRedirectGuard(ctx, p.target.InScopeURL)
	}

	resp, err := p.client.Get(ctx, rawURL)
	if err != nil {
		p.logger.Debug().Err(err).Str("url", rawURL).Msg("Probe failed")
		return nil, err
	}
	return resp, nil
}
