package extractor

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/dev-fuadhasan/openapi/internal/config"
)

var (
	versionSegmentRegex  = regexp.MustCompile(`/v[0-9]+/`)
	genericIDParamRegex  = regexp.MustCompile(`(?i)(^|_)(id|user|product|page|cat|item|search|q|query)($|_)`)
	apiShapeExtensions   = []string{".json", ".xml", ".yaml", ".yml", ".graphql"}
	apiShapePathMarkers  = []string{"/api/", "/rest/", "/graphql"}
	staticAssetExtension = map[string]struct{}{}
	idLikeParameters     = map[string]struct{}{}
)

func init() {
	for _, ext := range config.StaticAssetExtensions {
		staticAssetExtension[ext] = struct{}{}
	}
	for _, name := range config.IDLikeParameters {
		idLikeParameters[name] = struct{}{}
	}
}

// IsAPILike reports whether a URL looks like it serves programmatic data.
// Only the path and query are inspected, never the host.
func IsAPILike(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.EscapedPath())
	pq := p
	if u.RawQuery != "" {
		pq += "?" + strings.ToLower(u.RawQuery)
	}

	if strings.Contains(pq, "/api/") || strings.Contains(pq, "/graphql") {
		return true
	}
	if strings.HasSuffix(p, ".json") {
		return true
	}
	if versionSegmentRegex.MatchString(pq) {
		return true
	}
	for _, word := range config.APIVocabulary {
		if strings.Contains(pq, "/"+word) {
			return true
		}
	}
	return false
}

// HasAPIShape reports whether a URL's path has a data-format extension or
// an API-style directory
func HasAPIShape(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, ext := range apiShapeExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	for _, marker := range apiShapePathMarkers {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

// IsInjectionCandidate reports whether a URL is worth the differential SQL
// injection probe: a .php path or an id-like query parameter
func IsInjectionCandidate(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".php") {
		return true
	}
	for name := range u.Query() {
		lower := strings.ToLower(name)
		if _, ok := idLikeParameters[lower]; ok {
			return true
		}
		if genericIDParamRegex.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsStaticAsset reports whether a URL path ends in a script, style, image,
// font, media or archive extension
func IsStaticAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := staticAssetExtension[strings.ToLower(path.Ext(u.Path))]
	return ok
}
