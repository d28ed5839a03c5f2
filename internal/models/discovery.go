package models

// Provenance tags where a discovered URL was first seen
type Provenance string

const (
	ProvenanceHomepageHTML Provenance = "homepage-html"
	ProvenancePageHTML     Provenance = "page-html"
	ProvenanceScriptFile   Provenance = "script-file"
	ProvenanceSitemap      Provenance = "sitemap"
	ProvenanceRobots       Provenance = "robots"
	ProvenanceHeadless     Provenance = "headless"
	ProvenanceDeepCrawl    Provenance = "deep-crawl"
)

// DiscoveredURL is a normalized absolute URL plus where it came from.
// Identity is URL.
type DiscoveredURL struct {
	URL     string     `json:"url"`
	Source  Provenance `json:"source"`
	FoundOn string     `json:"found_on,omitempty"`
	APILike bool       `json:"api_like"`
}

// GetURL returns the normalized URL
func (d DiscoveredURL) GetURL() string {
	return d.URL
}

// DiscoveryStats counts the work done by one discovery run
type DiscoveryStats struct {
	DiscoveredURLs int `json:"discovered_urls"`
	PagesFetched   int `json:"pages_fetched"`
	Rounds         int `json:"rounds"`
	ScriptsFetched int `json:"scripts_fetched"`
	SitemapURLs    int `json:"sitemap_urls"`
	RobotsURLs     int `json:"robots_urls"`
	DeepCrawlProbe int `json:"deep_crawl_probed"`
	DeepCrawlOpen  int `json:"deep_crawl_open"`
}
