package models

import "time"

// ScanSummary holds aggregate counts. It is computed once per scan.
type ScanSummary struct {
	TotalOpenAPIs          int `json:"total_open_apis"`
	TotalExposedFiles      int `json:"total_exposed_files"`
	TotalSQLInjectionVulns int `json:"total_sql_injection_vulns"`
	CommonEndpointsChecked int `json:"common_endpoints_checked"`
	CommonEndpointsOpen    int `json:"common_endpoints_open"`
}

// ScanReport is the response body of one scan. Fields tagged "-" are kept
// for logs and metrics and never serialized.
type ScanReport struct {
	Domain                      string                `json:"domain"`
	OpenAPIs                    []EndpointResult      `json:"open_apis"`
	ExposedSensitiveFiles       []SensitiveFileResult `json:"exposed_sensitive_files"`
	SQLInjectionVulnerabilities []InjectionFinding    `json:"sql_injection_vulnerabilities"`
	ScanSummary                 ScanSummary           `json:"scan_summary"`

	ScanID            string          `json:"-"`
	StartedAt         time.Time       `json:"-"`
	Duration          time.Duration   `json:"-"`
	Discovery         DiscoveryStats  `json:"-"`
	InjectionTested   int             `json:"-"`
	DiscoveredURLList []DiscoveredURL `json:"-"`
}

// ScanReportBuilder assembles a ScanReport
type ScanReportBuilder struct {
	report          ScanReport
	commonEndpoints []EndpointResult
}

// NewScanReportBuilder starts a report for a domain with empty, non-nil lists
func NewScanReportBuilder(domain string) *ScanReportBuilder {
	return &ScanReportBuilder{
		report: ScanReport{
			Domain:                      domain,
			OpenAPIs:                    []EndpointResult{},
			ExposedSensitiveFiles:       []SensitiveFileResult{},
			SQLInjectionVulnerabilities: []InjectionFinding{},
		},
	}
}

// WithScanID sets the scan ID
func (b *ScanReportBuilder) WithScanID(scanID string) *ScanReportBuilder {
	b.report.ScanID = scanID
	return b
}

// WithStartedAt sets the start time
func (b *ScanReportBuilder) WithStartedAt(t time.Time) *ScanReportBuilder {
	b.report.StartedAt = t
	return b
}

// WithCommonEndpoints records the full fixed-target result list. Open
// entries are merged ahead of any later source.
func (b *ScanReportBuilder) WithCommonEndpoints(results []EndpointResult) *ScanReportBuilder {
	b.commonEndpoints = results
	for _, r := range results {
		if r.Open {
			b.report.OpenAPIs = append(b.report.OpenAPIs, r)
		}
	}
	return b
}

// WithDiscoveredEndpoints appends open discovery results
func (b *ScanReportBuilder) WithDiscoveredEndpoints(results []EndpointResult) *ScanReportBuilder {
	for _, r := range results {
		if r.Open {
			b.report.OpenAPIs = append(b.report.OpenAPIs, r)
		}
	}
	return b
}

// WithSensitiveFiles keeps the exposed entries
func (b *ScanReportBuilder) WithSensitiveFiles(results []SensitiveFileResult) *ScanReportBuilder {
	for _, r := range results {
		if r.Exposed {
			b.report.ExposedSensitiveFiles = append(b.report.ExposedSensitiveFiles, r)
		}
	}
	return b
}

// WithInjectionFindings keeps the vulnerable findings
func (b *ScanReportBuilder) WithInjectionFindings(findings []InjectionFinding, tested int) *ScanReportBuilder {
	for _, f := range findings {
		if f.Vulnerable {
			b.report.SQLInjectionVulnerabilities = append(b.report.SQLInjectionVulnerabilities, f)
		}
	}
	b.report.InjectionTested = tested
	return b
}

// WithDiscovery records discovery statistics and the discovered URL set
func (b *ScanReportBuilder) WithDiscovery(stats DiscoveryStats, discovered []DiscoveredURL) *ScanReportBuilder {
	b.report.Discovery = stats
	b.report.DiscoveredURLList = discovered
	return b
}

// WithDuration sets the total scan duration
func (b *ScanReportBuilder) WithDuration(d time.Duration) *ScanReportBuilder {
	b.report.Duration = d
	return b
}

// Build deduplicates the merged lists by URL (first occurrence wins) and
// computes the summary.
func (b *ScanReportBuilder) Build() *ScanReport {
	report := b.report
	report.OpenAPIs = DedupByURL(report.OpenAPIs)
	report.ExposedSensitiveFiles = DedupByURL(report.ExposedSensitiveFiles)
	report.SQLInjectionVulnerabilities = DedupByURL(report.SQLInjectionVulnerabilities)

	commonOpen := 0
	for _, r := range b.commonEndpoints {
		if r.Open {
			commonOpen++
		}
	}

	report.ScanSummary = ScanSummary{
		TotalOpenAPIs:          len(report.OpenAPIs),
		TotalExposedFiles:      len(report.ExposedSensitiveFiles),
		TotalSQLInjectionVulns: len(report.SQLInjectionVulnerabilities),
		CommonEndpointsChecked: len(b.commonEndpoints),
		CommonEndpointsOpen:    commonOpen,
	}
	return &report
}
