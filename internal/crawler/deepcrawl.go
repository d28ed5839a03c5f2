package crawler

import (
	"context"

	"github.com/dev-fuadhasan/openapi/internal/common/batchprocessor"
	"github.com/dev-fuadhasan/openapi/internal/extractor"
	"github.com/dev-fuadhasan/openapi/internal/models"
)

// deepCrawlCandidates returns the discovered URLs worth probing as APIs, in
// discovery order, capped at the probe budget
func (r *discoveryRun) deepCrawlCandidates() []string {
	limit := r.engine.cfg.DeepCrawlProbeCap
	var out []string
	for _, d := range r.set.items {
		if len(out) >= limit {
			break
		}
		if d.APILike || extractor.HasAPIShape(d.URL) {
			out = append(out, d.URL)
		}
	}
	return out
}

// deepCrawl probes the API-like discovered URLs and keeps the open ones.
// Responses the crawl already holds are classified without a second request.
func (r *discoveryRun) deepCrawl(ctx context.Context) []models.EndpointResult {
	candidates := r.deepCrawlCandidates()
	r.stats.DeepCrawlProbe = len(candidates)
	if len(candidates) == 0 {
		return []models.EndpointResult{}
	}

	bp := batchprocessor.NewBatchProcessor(batchprocessor.BatchProcessorConfig{
		BatchSize: r.engine.cfg.DeepCrawlBatchSize,
		Name:      "deep-crawl",
	}, r.logger)

	results, _ := batchprocessor.Map(ctx, bp, candidates, func(ctx context.Context, u string) models.EndpointResult {
		if snap, ok := r.snapshots[u]; ok {
			if snap.Err != nil {
				return models.EndpointResult{URL: u, Error: snap.Err.Error()}
			}
			return r.prober.Classify(u, snap.Status, snap.ContentType, snap.Body)
		}
		return r.prober.Probe(ctx, u)
	})

	open := make([]models.EndpointResult, 0, len(results))
	for _, res := range results {
		if res.Open {
			open = append(open, res.WithFoundIn(models.FoundInDeepCrawl))
		}
	}
	r.stats.DeepCrawlOpen = len(open)
	return open
}
