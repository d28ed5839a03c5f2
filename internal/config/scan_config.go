package config

import "time"

// ScanConfig groups the budgets of one scan. Path lists, payloads and
// signature patterns are not part of it; they come from tables.go.
type ScanConfig struct {
	Probe     ProbeConfig     `json:"probe,omitempty" yaml:"probe,omitempty"`
	Discovery DiscoveryConfig `json:"discovery,omitempty" yaml:"discovery,omitempty"`
	Injection InjectionConfig `json:"injection,omitempty" yaml:"injection,omitempty"`
}

func NewDefaultScanConfig() ScanConfig {
	return ScanConfig{
		Probe:     NewDefaultProbeConfig(),
		Discovery: NewDefaultDiscoveryConfig(),
		Injection: NewDefaultInjectionConfig(),
	}
}

type ProbeConfig struct {
	Timeout         time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=1ms"`
	SampleChars     int           `json:"sample_chars,omitempty" yaml:"sample_chars,omitempty" validate:"min=1"`
	HTMLSampleChars int           `json:"html_sample_chars,omitempty" yaml:"html_sample_chars,omitempty" validate:"min=1"`
	StructureKeys   int           `json:"structure_keys,omitempty" yaml:"structure_keys,omitempty" validate:"min=1"`
	FixedBatchSize  int           `json:"fixed_batch_size,omitempty" yaml:"fixed_batch_size,omitempty" validate:"min=1"`
}

func NewDefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Timeout:         DefaultProbeTimeout,
		SampleChars:     DefaultSampleChars,
		HTMLSampleChars: DefaultHTMLSampleChars,
		StructureKeys:   DefaultStructureKeys,
		FixedBatchSize:  DefaultFixedBatchSize,
	}
}

type DiscoveryConfig struct {
	DepthBudget          int `json:"depth_budget,omitempty" yaml:"depth_budget,omitempty" validate:"min=1"`
	PageBudget           int `json:"page_budget,omitempty" yaml:"page_budget,omitempty" validate:"min=1"`
	RoundSize            int `json:"round_size,omitempty" yaml:"round_size,omitempty" validate:"min=1"`
	ScriptsPerPage       int `json:"scripts_per_page,omitempty" yaml:"scripts_per_page,omitempty" validate:"min=0"`
	ScriptFetchesPerPage int `json:"script_fetches_per_page,omitempty" yaml:"script_fetches_per_page,omitempty" validate:"min=0,ltefield=ScriptsPerPage"`
	ScriptBatchSize      int `json:"script_batch_size,omitempty" yaml:"script_batch_size,omitempty" validate:"min=1"`
	SitemapMaxDepth      int `json:"sitemap_max_depth,omitempty" yaml:"sitemap_max_depth,omitempty" validate:"min=1"`
	MaxSitemapURLs       int `json:"max_sitemap_urls,omitempty" yaml:"max_sitemap_urls,omitempty" validate:"min=0"`
	DeepCrawlProbeCap    int `json:"deep_crawl_probe_cap,omitempty" yaml:"deep_crawl_probe_cap,omitempty" validate:"min=0"`
	DeepCrawlBatchSize   int `json:"deep_crawl_batch_size,omitempty" yaml:"deep_crawl_batch_size,omitempty" validate:"min=1"`
}

func NewDefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		DepthBudget:          DefaultDepthBudget,
		PageBudget:           DefaultPageBudget,
		RoundSize:            DefaultRoundSize,
		ScriptsPerPage:       DefaultScriptsPerPage,
		ScriptFetchesPerPage: DefaultScriptFetchesPerPage,
		ScriptBatchSize:      DefaultScriptBatchSize,
		SitemapMaxDepth:      DefaultSitemapMaxDepth,
		MaxSitemapURLs:       DefaultMaxSitemapURLs,
		DeepCrawlProbeCap:    DefaultDeepCrawlProbeCap,
		DeepCrawlBatchSize:   DefaultDeepCrawlBatchSize,
	}
}

type InjectionConfig struct {
	Enabled               bool   `json:"enabled" yaml:"enabled"`
	CandidateCap          int    `json:"candidate_cap,omitempty" yaml:"candidate_cap,omitempty" validate:"min=0"`
	BatchSize             int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty" validate:"min=1"`
	MaxParams             int    `json:"max_params,omitempty" yaml:"max_params,omitempty" validate:"min=1"`
	MaxPayloads           int    `json:"max_payloads,omitempty" yaml:"max_payloads,omitempty" validate:"min=1"`
	LengthDivergenceChars int    `json:"length_divergence_chars,omitempty" yaml:"length_divergence_chars,omitempty" validate:"min=0"`
	EvidenceSnippetChars  int    `json:"evidence_snippet_chars,omitempty" yaml:"evidence_snippet_chars,omitempty" validate:"min=1"`
	Severity              string `json:"severity,omitempty" yaml:"severity,omitempty" validate:"oneof=LOW MEDIUM HIGH CRITICAL"`
}

func NewDefaultInjectionConfig() InjectionConfig {
	return InjectionConfig{
		Enabled:               true,
		CandidateCap:          DefaultInjectionCandidateCap,
		BatchSize:             DefaultInjectionBatchSize,
		MaxParams:             DefaultInjectionMaxParams,
		MaxPayloads:           DefaultInjectionMaxPayloads,
		LengthDivergenceChars: DefaultLengthDivergenceChars,
		EvidenceSnippetChars:  DefaultEvidenceSnippetChars,
		Severity:              DefaultInjectionSeverity,
	}
}
