package main

import (
	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/crawler"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/dev-fuadhasan/openapi/internal/injection"
	"github.com/dev-fuadhasan/openapi/internal/metrics"
	"github.com/dev-fuadhasan/openapi/internal/orchestrator"
	"github.com/dev-fuadhasan/openapi/internal/prober"
	"github.com/rs/zerolog"
)

// app holds the wired scan pipeline shared by serve and scan
type app struct {
	orchestrator *orchestrator.Orchestrator
	recorder     *metrics.Recorder
	browser      *crawler.HeadlessBrowserManager
	logger       zerolog.Logger
}

// newApp builds the HTTP client, prober, crawler, injection tester and
// orchestrator from cfg. A recorder is created only when metrics are enabled.
func newApp(cfg *config.GlobalConfig, logger zerolog.Logger) (*app, error) {
	a := &app{logger: logger}

	if cfg.MetricsConfig.Enabled {
		recorder, err := metrics.NewRecorder()
		if err != nil {
			return nil, common.WrapError(err, "failed to create metrics recorder")
		}
		a.recorder = recorder
	}

	hc := cfg.HTTPClientConfig
	client, err := httpclient.NewHTTPClientBuilder(logger).
		WithConfig(httpclient.FromConfig(hc)).
		WithConnectionPooling(hc.MaxIdleConns, hc.MaxConnsPerHost, hc.MaxConnsPerHost).
		WithHTTP2(hc.EnableHTTP2).
		WithTransportWrapper(a.recorder.InstrumentRoundTripper).
		Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to create HTTP client")
	}

	scanCfg := cfg.ScanConfig
	p := prober.New(client, scanCfg.Probe, logger)

	engineBuilder := crawler.NewEngineBuilder(logger).
		WithClient(client).
		WithProber(p).
		WithConfig(scanCfg.Discovery).
		WithRequestTimeout(scanCfg.Probe.Timeout)

	if cfg.HeadlessBrowserConfig.Enabled {
		browser := crawler.NewHeadlessBrowserManager(cfg.HeadlessBrowserConfig, client.Config().UserAgent, logger)
		if err := browser.Start(); err != nil {
			logger.Warn().Err(err).Msg("Headless browser unavailable, homepage rendering disabled")
		} else {
			a.browser = browser
			engineBuilder.WithRenderer(browser)
		}
	}

	engine, err := engineBuilder.Build()
	if err != nil {
		a.close()
		return nil, common.WrapError(err, "failed to create crawler")
	}

	orchestratorBuilder := orchestrator.NewOrchestratorBuilder(logger).
		WithProber(p).
		WithProbeConfig(scanCfg.Probe).
		WithDiscoverer(engine).
		WithMetrics(a.recorder)

	if scanCfg.Injection.Enabled {
		tester, err := injection.New(client, scanCfg.Injection, scanCfg.Probe.Timeout, logger)
		if err != nil {
			a.close()
			return nil, common.WrapError(err, "failed to create injection tester")
		}
		orchestratorBuilder.WithInjectionTester(tester)
	}

	a.orchestrator, err = orchestratorBuilder.Build()
	if err != nil {
		a.close()
		return nil, common.WrapError(err, "failed to create orchestrator")
	}
	return a, nil
}

// close releases the headless browser, if one was started
func (a *app) close() {
	if a.browser != nil {
		a.browser.Stop()
	}
}
