// Package orchestrator runs one complete scan of a target and assembles the
// report.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/crawler"
	"github.com/dev-fuadhasan/openapi/internal/injection"
	"github.com/dev-fuadhasan/openapi/internal/metrics"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/prober"
	"github.com/dev-fuadhasan/openapi/internal/scanner"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	phaseCommonEndpoints = "common_endpoints"
	phaseDiscovery       = "discovery"
	phaseSensitiveFiles  = "sensitive_files"
	phaseInjection       = "injection"
)

type scanIDKey struct{}

// ContextWithScanID makes the next Scan with ctx use scanID instead of a
// generated one
func ContextWithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey{}, scanID)
}

func scanIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(scanIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Discoverer finds URLs and open endpoints beyond the fixed path lists
type Discoverer interface {
	Discover(ctx context.Context, target *urlhandler.Target) (*crawler.Result, error)
}

// Orchestrator wires the scan phases together. It holds no per-scan state
// and is safe for concurrent Scan calls.
type Orchestrator struct {
	prober     *prober.Prober
	probeCfg   config.ProbeConfig
	discoverer Discoverer
	tester     *injection.Tester
	metrics    *metrics.Recorder
	logger     zerolog.Logger
}

// OrchestratorBuilder provides a fluent interface for creating Orchestrator
// instances
type OrchestratorBuilder struct {
	prober     *prober.Prober
	probeCfg   config.ProbeConfig
	discoverer Discoverer
	tester     *injection.Tester
	metrics    *metrics.Recorder
	logger     zerolog.Logger
}

// NewOrchestratorBuilder creates a builder with default probe settings
func NewOrchestratorBuilder(logger zerolog.Logger) *OrchestratorBuilder {
	return &OrchestratorBuilder{
		probeCfg: config.NewDefaultProbeConfig(),
		logger:   logger.With().Str("component", "Orchestrator").Logger(),
	}
}

// WithProber sets the prober used for the fixed path lists
func (b *OrchestratorBuilder) WithProber(p *prober.Prober) *OrchestratorBuilder {
	b.prober = p
	return b
}

// WithProbeConfig sets the fixed-list batch size and probe limits
func (b *OrchestratorBuilder) WithProbeConfig(cfg config.ProbeConfig) *OrchestratorBuilder {
	b.probeCfg = cfg
	return b
}

// WithDiscoverer sets the discovery engine
func (b *OrchestratorBuilder) WithDiscoverer(d Discoverer) *OrchestratorBuilder {
	b.discoverer = d
	return b
}

// WithInjectionTester enables the injection phase. Without a tester the phase
// is skipped and the report carries no findings.
func (b *OrchestratorBuilder) WithInjectionTester(t *injection.Tester) *OrchestratorBuilder {
	b.tester = t
	return b
}

// WithMetrics sets the recorder; nil disables metrics
func (b *OrchestratorBuilder) WithMetrics(r *metrics.Recorder) *OrchestratorBuilder {
	b.metrics = r
	return b
}

// Build validates the collaborators and creates the orchestrator
func (b *OrchestratorBuilder) Build() (*Orchestrator, error) {
	if b.prober == nil {
		return nil, common.NewValidationError("prober", nil, "prober is required")
	}
	if b.discoverer == nil {
		return nil, common.NewValidationError("discoverer", nil, "discoverer is required")
	}
	if b.probeCfg.FixedBatchSize <= 0 {
		return nil, common.NewValidationError("fixed_batch_size", b.probeCfg.FixedBatchSize, "must be positive")
	}

	return &Orchestrator{
		prober:     b.prober,
		probeCfg:   b.probeCfg,
		discoverer: b.discoverer,
		tester:     b.tester,
		metrics:    b.metrics,
		logger:     b.logger,
	}, nil
}

// phaseResults collects the outputs of the three concurrent phases
type phaseResults struct {
	common    []models.EndpointResult
	sensitive []models.SensitiveFileResult
	discovery *crawler.Result
}

// Scan runs the fixed endpoint list, discovery and the sensitive file list
// concurrently, then the injection probe over what discovery found. A failed
// or panicking phase, or a context cancelled before the report is
// assembled, fails the whole scan.
func (o *Orchestrator) Scan(ctx context.Context, target *urlhandler.Target) (*models.ScanReport, error) {
	if target == nil {
		return nil, common.NewValidationError("target", nil, "target is required")
	}

	scanID := scanIDFrom(ctx)
	logger := o.logger.With().Str("scan_id", scanID).Str("target", target.Domain).Logger()
	start := time.Now()

	o.metrics.ScanStarted()
	logger.Info().Msg("Scan started")

	report, err := o.scan(ctx, target, scanID, start, logger)

	status := "success"
	if err != nil {
		status = "error"
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scan failed")
	} else {
		logger.Info().
			Int("open_apis", report.ScanSummary.TotalOpenAPIs).
			Int("exposed_files", report.ScanSummary.TotalExposedFiles).
			Int("sql_injection_vulns", report.ScanSummary.TotalSQLInjectionVulns).
			Int("discovered_urls", report.Discovery.DiscoveredURLs).
			Dur("duration", report.Duration).
			Msg("Scan completed")
	}
	o.metrics.ScanFinished(status, time.Since(start))

	return report, err
}

func (o *Orchestrator) scan(ctx context.Context, target *urlhandler.Target, scanID string, start time.Time, logger zerolog.Logger) (*models.ScanReport, error) {
	results, err := o.runPhases(ctx, target, logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, common.WrapError(err, "scan cancelled")
	}

	findings, tested, err := o.runInjection(ctx, target, results.discovery.Discovered, logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, common.WrapError(err, "scan cancelled")
	}

	report := models.NewScanReportBuilder(target.Domain).
		WithScanID(scanID).
		WithStartedAt(start).
		WithCommonEndpoints(results.common).
		WithDiscoveredEndpoints(results.discovery.Endpoints).
		WithSensitiveFiles(results.sensitive).
		WithInjectionFindings(findings, tested).
		WithDiscovery(results.discovery.Stats, results.discovery.Discovered).
		WithDuration(time.Since(start)).
		Build()

	o.metrics.AddFindings("open_api", report.ScanSummary.TotalOpenAPIs)
	o.metrics.AddFindings("exposed_file", report.ScanSummary.TotalExposedFiles)
	o.metrics.AddFindings("sql_injection", report.ScanSummary.TotalSQLInjectionVulns)

	return report, nil
}

// runPhases starts the three independent phases and waits for all of them.
// A failing phase does not cancel the others.
func (o *Orchestrator) runPhases(ctx context.Context, target *urlhandler.Target, logger zerolog.Logger) (*phaseResults, error) {
	fixed := scanner.NewDefault(o.prober.ForTarget(target), o.probeCfg, logger)
	results := &phaseResults{}
	errs := make([]error, 3)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		errs[0] = o.runPhase(phaseCommonEndpoints, logger, func() error {
			results.common = fixed.ScanCommonEndpoints(ctx, target)
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		errs[1] = o.runPhase(phaseDiscovery, logger, func() error {
			res, err := o.discoverer.Discover(ctx, target)
			if err != nil {
				return err
			}
			results.discovery = res
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		errs[2] = o.runPhase(phaseSensitiveFiles, logger, func() error {
			results.sensitive = fixed.ScanSensitiveFiles(ctx, target)
			return nil
		})
	}()
	wg.Wait()

	if err := common.CombineErrors(errs); err != nil {
		return nil, err
	}
	if results.discovery == nil {
		results.discovery = &crawler.Result{Discovered: []models.DiscoveredURL{}, Endpoints: []models.EndpointResult{}}
	}
	return results, nil
}

// runPhase times fn and converts a panic into an error
func (o *Orchestrator) runPhase(name string, logger zerolog.Logger, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s phase panicked: %v", name, r)
		}
		o.metrics.ObservePhase(name, time.Since(start))
		if err != nil {
			logger.Error().Err(err).Str("phase", name).Msg("Scan phase failed")
			return
		}
		logger.Debug().Str("phase", name).Dur("duration", time.Since(start)).Msg("Scan phase finished")
	}()

	if err := fn(); err != nil {
		return common.WrapErrorf(err, "%s phase failed", name)
	}
	return nil
}

// runInjection tests the injection candidates drawn from the discovery set
func (o *Orchestrator) runInjection(ctx context.Context, target *urlhandler.Target, discovered []models.DiscoveredURL, logger zerolog.Logger) ([]models.InjectionFinding, int, error) {
	if o.tester == nil {
		return []models.InjectionFinding{}, 0, nil
	}

	var (
		findings   []models.InjectionFinding
		candidates []string
	)
	err := o.runPhase(phaseInjection, logger, func() error {
		tester := o.tester.ForTarget(target)
		candidates = tester.SelectCandidates(target, discovered)
		logger.Info().Int("candidates", len(candidates)).Msg("Injection testing started")
		findings = tester.TestAll(ctx, candidates)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return findings, len(candidates), nil
}
