// Package extractor pulls same-scope URLs out of page and script bodies and
// classifies them.
package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
)

// Extractor runs an ordered rule list and keeps the in-scope results
type Extractor struct {
	rules  []Rule
	target *urlhandler.Target
	logger zerolog.Logger
}

// New creates an extractor for a target. Without rules the defaults apply.
func New(target *urlhandler.Target, logger zerolog.Logger, rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{
		rules:  rules,
		target: target,
		logger: logger.With().Str("component", "Extractor").Logger(),
	}
}

// Extract returns the normalized, in-scope, deduplicated URLs referenced by
// text, resolved against base. Order follows rule order then match order, so
// identical input always yields the identical list.
func (e *Extractor) Extract(text string, base *url.URL) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, rule := range e.rules {
		for _, ref := range rule(text, base) {
			normalized, ok := e.resolve(ref, base)
			if !ok {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			out = append(out, normalized)
		}
	}

	if base != nil {
		e.logger.Debug().Str("base", base.String()).Int("urls", len(out)).Msg("Extraction finished")
	}
	return out
}

// ScriptURLs returns up to limit in-scope external script URLs referenced by
// an HTML page, in document order
func (e *Extractor) ScriptURLs(html string, base *url.URL, limit int) []string {
	if limit <= 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		normalized, ok := e.resolve(src, base)
		if !ok {
			return true
		}
		if _, dup := seen[normalized]; dup {
			return true
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
		return len(out) < limit
	})
	return out
}

// InScope reports whether a URL belongs to the extractor's target
func (e *Extractor) InScope(rawURL string) bool {
	return e.target.InScope(rawURL)
}

func (e *Extractor) resolve(ref string, base *url.URL) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}

	var resolved *url.URL
	if base != nil {
		u, err := base.Parse(ref)
		if err != nil {
			return "", false
		}
		resolved = u
	} else {
		u, err := url.Parse(ref)
		if err != nil || !u.IsAbs() {
			return "", false
		}
		resolved = u
	}

	if !e.target.InScopeURL(resolved) {
		return "", false
	}

	normalized, err := urlhandler.NormalizeURL(resolved.String())
	if err != nil {
		return "", false
	}
	return normalized, true
}
