// Package scanner probes the fixed path lists (common API endpoints and
// sensitive files) on a target.
package scanner

import (
	"context"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common/batchprocessor"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
)

// EndpointProber is the subset of prober.Prober the scanner needs
type EndpointProber interface {
	Probe(ctx context.Context, rawURL string) models.EndpointResult
	CheckExposure(ctx context.Context, rawURL string) models.SensitiveFileResult
}

// Scanner runs the fixed path lists through a prober in bounded batches
type Scanner struct {
	prober          EndpointProber
	commonEndpoints []string
	sensitiveFiles  []string
	batchSize       int
	logger          zerolog.Logger
}

// New creates a scanner over copies of the given path lists
func New(prober EndpointProber, commonEndpoints, sensitiveFiles []string, batchSize int, logger zerolog.Logger) *Scanner {
	return &Scanner{
		prober:          prober,
		commonEndpoints: append([]string(nil), commonEndpoints...),
		sensitiveFiles:  append([]string(nil), sensitiveFiles...),
		batchSize:       batchSize,
		logger:          logger.With().Str("component", "Scanner").Logger(),
	}
}

// NewDefault creates a scanner over the built-in path lists
func NewDefault(prober EndpointProber, cfg config.ProbeConfig, logger zerolog.Logger) *Scanner {
	return New(prober, config.CommonEndpoints, config.SensitiveFiles, cfg.FixedBatchSize, logger)
}

// ScanCommonEndpoints probes every common endpoint path and returns all
// results in list order
func (s *Scanner) ScanCommonEndpoints(ctx context.Context, target *urlhandler.Target) []models.EndpointResult {
	start := time.Now()
	bp := s.batchProcessor("common-endpoints")

	results, _ := batchprocessor.Map(ctx, bp, s.urls(target, s.commonEndpoints),
		func(ctx context.Context, u string) models.EndpointResult {
			return s.prober.Probe(ctx, u).WithFoundIn(models.FoundInCommonEndpoints)
		})

	open := 0
	for _, r := range results {
		if r.Open {
			open++
		}
	}
	s.logger.Info().
		Str("target", target.Domain).
		Int("checked", len(results)).
		Int("open", open).
		Dur("duration", time.Since(start)).
		Msg("Common endpoint scan finished")
	return results
}

// ScanSensitiveFiles checks every sensitive path and returns all results in
// list order
func (s *Scanner) ScanSensitiveFiles(ctx context.Context, target *urlhandler.Target) []models.SensitiveFileResult {
	start := time.Now()
	bp := s.batchProcessor("sensitive-files")

	results, _ := batchprocessor.Map(ctx, bp, s.urls(target, s.sensitiveFiles), s.prober.CheckExposure)

	exposed := 0
	for _, r := range results {
		if r.Exposed {
			exposed++
		}
	}
	s.logger.Info().
		Str("target", target.Domain).
		Int("checked", len(results)).
		Int("exposed", exposed).
		Dur("duration", time.Since(start)).
		Msg("Sensitive file scan finished")
	return results
}

func (s *Scanner) urls(target *urlhandler.Target, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = target.URL(p)
	}
	return out
}

func (s *Scanner) batchProcessor(name string) *batchprocessor.BatchProcessor {
	return batchprocessor.NewBatchProcessor(batchprocessor.BatchProcessorConfig{
		BatchSize: s.batchSize,
		Name:      name,
	}, s.logger)
}
