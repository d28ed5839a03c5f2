package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/BishopFox/jsluice"
	"github.com/PuerkitoBio/goquery"
)

// Rule pulls raw URL references out of a page or script body. References
// may be relative; the Extractor resolves and filters them.
type Rule func(text string, base *url.URL) []string

// DefaultRules returns the built-in rules in evaluation order
func DefaultRules() []Rule {
	return []Rule{
		HTMLAttributeRule,
		AttributeRegexRule,
		KeyedLiteralRule,
		FetchCallRule,
		VerbMethodCallRule,
		AjaxCallRule,
		XHROpenRule,
		APILiteralRule,
		JSluiceRule,
	}
}

// AttributeSelector maps an element to the attribute holding a reference
type AttributeSelector struct {
	Tag       string
	Attribute string
}

// htmlAttributeSelectors lists the reference-bearing attributes read from parsed markup
var htmlAttributeSelectors = []AttributeSelector{
	{"a", "href"},
	{"link", "href"},
	{"area", "href"},
	{"script", "src"},
	{"img", "src"},
	{"iframe", "src"},
	{"frame", "src"},
	{"embed", "src"},
	{"source", "src"},
	{"form", "action"},
	{"object", "data"},
}

var (
	attributeRegex    = regexp.MustCompile(`(?i)\b(?:href|src|action)\s*=\s*["']([^"']+)["']`)
	keyedLiteralRegex = regexp.MustCompile("(?i)[\"']?\\b(?:url|endpoint|api|path|uri|href)[\"']?\\s*[:=]\\s*[\"'`]([^\"'`\\s]+)[\"'`]")
	fetchCallRegex    = regexp.MustCompile("(?i)\\bfetch\\s*\\(\\s*[\"'`]([^\"'`]+)[\"'`]")
	verbCallRegex     = regexp.MustCompile("(?i)(?:\\baxios|\\bjQuery|\\bhttp|\\$http|\\$)\\.(?:get|post|put|delete|patch|head|getJSON)\\s*\\(\\s*[\"'`]([^\"'`]+)[\"'`]")
	ajaxCallRegex     = regexp.MustCompile("(?is)\\$\\.ajax\\s*\\(\\s*\\{[^}]*?\\burl\\s*:\\s*[\"'`]([^\"'`]+)[\"'`]")
	xhrOpenRegex      = regexp.MustCompile("(?i)\\.open\\s*\\(\\s*[\"'](?:GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)[\"']\\s*,\\s*[\"'`]([^\"'`]+)[\"'`]")
	apiLiteralRegex   = regexp.MustCompile("[\"'`]([^\"'`\\s<>]*(?:/api/|/graphql|\\.json|/v[0-9]+/)[^\"'`\\s<>]*)[\"'`]")
)

// HTMLAttributeRule reads reference attributes from parsed markup
func HTMLAttributeRule(text string, _ *url.URL) []string {
	if !looksLikeMarkup(text) {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}

	var refs []string
	for _, sel := range htmlAttributeSelectors {
		doc.Find(sel.Tag + "[" + sel.Attribute + "]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(sel.Attribute); ok {
				refs = append(refs, v)
			}
		})
	}
	return refs
}

// AttributeRegexRule finds href/src/action attributes in text the parser
// does not treat as markup, such as HTML inside script strings
func AttributeRegexRule(text string, _ *url.URL) []string {
	return firstGroups(attributeRegex, text)
}

// KeyedLiteralRule finds path-looking values assigned to url/endpoint/api/path/uri/href keys
func KeyedLiteralRule(text string, _ *url.URL) []string {
	return filterReferences(firstGroups(keyedLiteralRegex, text))
}

// FetchCallRule finds fetch("...") call sites
func FetchCallRule(text string, _ *url.URL) []string {
	return firstGroups(fetchCallRegex, text)
}

// VerbMethodCallRule finds axios.get(...), $.post(...), http.get(...) style calls
func VerbMethodCallRule(text string, _ *url.URL) []string {
	return firstGroups(verbCallRegex, text)
}

// AjaxCallRule finds $.ajax({ url: "..." }) calls
func AjaxCallRule(text string, _ *url.URL) []string {
	return firstGroups(ajaxCallRegex, text)
}

// XHROpenRule finds xhr.open("GET", "...") calls
func XHROpenRule(text string, _ *url.URL) []string {
	return firstGroups(xhrOpenRegex, text)
}

// APILiteralRule finds quoted or template strings that contain API-looking
// substrings. Template placeholders cut the literal short.
func APILiteralRule(text string, _ *url.URL) []string {
	var refs []string
	for _, m := range firstGroups(apiLiteralRegex, text) {
		if i := strings.Index(m, "${"); i >= 0 {
			m = m[:i]
		}
		if m != "" {
			refs = append(refs, m)
		}
	}
	return filterReferences(refs)
}

// JSluiceRule runs jsluice's syntax-aware URL extraction on script bodies
func JSluiceRule(text string, _ *url.URL) []string {
	if text == "" || looksLikeMarkup(text) {
		return nil
	}
	analyzer := jsluice.NewAnalyzer([]byte(text))

	var refs []string
	for _, u := range analyzer.GetURLs() {
		if u == nil || u.URL == "" {
			continue
		}
		refs = append(refs, u.URL)
	}
	return refs
}

func firstGroups(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 && m[1] != "" {
			out = append(out, m[1])
		}
	}
	return out
}

// filterReferences keeps values that read as a path or absolute URL rather
// than an arbitrary string
func filterReferences(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.HasPrefix(v, "/") || strings.HasPrefix(v, "./") || strings.HasPrefix(v, "../") ||
			strings.HasPrefix(strings.ToLower(v), "http://") || strings.HasPrefix(strings.ToLower(v), "https://") {
			out = append(out, v)
		}
	}
	return out
}

func looksLikeMarkup(text string) bool {
	head := text[:min(len(text), 512)]
	return strings.HasPrefix(strings.TrimLeft(head, " \t\r\n\ufeff"), "<")
}
