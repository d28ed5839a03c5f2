package config

import "time"

const (
	// Server Defaults
	DefaultServerListenAddress    = ":8787"
	DefaultServerReadTimeoutSecs  = 15
	DefaultServerWriteTimeoutSecs = 300
	DefaultServerMaxBodyBytes     = 64 * 1024

	// Probe Defaults
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultProbeTimeout     = 10 * time.Second
	DefaultMaxContentBytes  = 5 * 1024 * 1024
	DefaultSampleChars      = 1000
	DefaultHTMLSampleChars  = 500
	DefaultStructureKeys    = 10
	DefaultFixedBatchSize   = 5
	DefaultFollowRedirects  = true
	DefaultMaxRedirects     = 5
	DefaultInsecureSkipTLS  = false
	DefaultEnableHTTP2      = true
	DefaultMaxIdleConns     = 100
	DefaultMaxConnsPerHost  = 20
	DefaultIdleConnTimeout  = 90 * time.Second
	DefaultDialTimeout      = 5 * time.Second
	DefaultTLSHandshakeTime = 5 * time.Second

	// Discovery Defaults
	DefaultDepthBudget          = 3
	DefaultPageBudget           = 50
	DefaultRoundSize            = 10
	DefaultScriptsPerPage       = 20
	DefaultScriptFetchesPerPage = 15
	DefaultScriptBatchSize      = 5
	DefaultSitemapMaxDepth      = 3
	DefaultMaxSitemapURLs       = 1000
	DefaultDeepCrawlProbeCap    = 200
	DefaultDeepCrawlBatchSize   = 10

	// Injection Defaults
	DefaultInjectionCandidateCap  = 50
	DefaultInjectionBatchSize     = 5
	DefaultInjectionMaxParams     = 3
	DefaultInjectionMaxPayloads   = 5
	DefaultLengthDivergenceChars  = 100
	DefaultEvidenceSnippetChars   = 500
	DefaultInjectionSeverity      = "HIGH"

	// Headless Browser Defaults
	DefaultHeadlessEnabled         = false
	DefaultHeadlessPoolSize        = 1
	DefaultHeadlessPageLoadTimeout = 20
	DefaultHeadlessWaitAfterLoadMs = 500
	DefaultHeadlessWindowWidth     = 1366
	DefaultHeadlessWindowHeight    = 768

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Metrics Defaults
	DefaultMetricsEnabled       = false
	DefaultMetricsListenAddress = ":9090"
	DefaultMetricsPath          = "/metrics"

	// Resource Limiter Defaults
	DefaultResourceLimiterEnabled        = true
	DefaultResourceCheckInterval         = 30 * time.Second
	DefaultSystemMemThreshold            = 0.9
	DefaultResourceMaxGoroutines         = 20000
	DefaultResourceGoroutineWarningRatio = 0.7
)
