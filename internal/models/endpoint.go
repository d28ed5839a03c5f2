package models

// Data kinds reported for a probed body. Non-text bodies report their
// content-type string instead.
const (
	DataKindJSON     = "json"
	DataKindJSONLike = "text/json-like"
	DataKindHTML     = "html"
	DataKindXML      = "xml"
	DataKindText     = "text"
)

// Provenance values for EndpointResult.FoundIn
const (
	FoundInCommonEndpoints = "common-endpoints"
	FoundInDeepCrawl       = "deep-crawl"
)

// EndpointResult is the outcome of probing one URL. It is built once by the
// prober and not modified afterwards.
type EndpointResult struct {
	URL           string            `json:"url"`
	Status        int               `json:"status"`
	Open          bool              `json:"open"`
	Sample        string            `json:"sample,omitempty"`
	DataType      string            `json:"data_type,omitempty"`
	Structure     *StructureSummary `json:"structure,omitempty"`
	ContentType   string            `json:"content_type,omitempty"`
	ContentLength int64             `json:"content_length,omitempty"`
	FoundIn       string            `json:"found_in,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// StructureSummary describes the top level of a JSON document: the first
// keys in document order and the total key count for objects, the element
// count for arrays.
type StructureSummary struct {
	Keys      []string `json:"keys,omitempty"`
	KeyCount  int      `json:"key_count"`
	ItemCount int      `json:"item_count,omitempty"`
}

// GetURL returns the probed URL
func (r EndpointResult) GetURL() string {
	return r.URL
}

// WithFoundIn returns a copy tagged with a provenance
func (r EndpointResult) WithFoundIn(foundIn string) EndpointResult {
	r.FoundIn = foundIn
	return r
}

// SensitiveFileResult is the outcome of checking one sensitive path
type SensitiveFileResult struct {
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Exposed bool   `json:"exposed"`
}

// GetURL returns the checked URL
func (r SensitiveFileResult) GetURL() string {
	return r.URL
}

// URLProvider is implemented by results keyed by URL
type URLProvider interface {
	GetURL() string
}

// DedupByURL keeps the first occurrence of every URL, preserving order
func DedupByURL[T URLProvider](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.GetURL()]; ok {
			continue
		}
		seen[item.GetURL()] = struct{}{}
		out = append(out, item)
	}
	return out
}
