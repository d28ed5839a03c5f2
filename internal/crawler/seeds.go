package crawler

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/dev-fuadhasan/openapi/internal/extractor"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
)

var (
	robotsPathRe    = regexp.MustCompile(`(?i)^\s*(?:Allow|Disallow):\s*(\S+)`)
	robotsSitemapRe = regexp.MustCompile(`(?i)^\s*Sitemap:\s*(\S+)`)
)

// robotsDirectives is what seeding takes from robots.txt
type robotsDirectives struct {
	Paths    []string
	Sitemaps []string
}

// parseRobots extracts Sitemap directives and literal Allow/Disallow paths.
// Patterns with wildcards and the bare root are skipped.
func parseRobots(content string) robotsDirectives {
	var out robotsDirectives
	for _, line := range strings.Split(content, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := robotsSitemapRe.FindStringSubmatch(line); len(m) > 1 {
			out.Sitemaps = append(out.Sitemaps, m[1])
			continue
		}
		if m := robotsPathRe.FindStringSubmatch(line); len(m) > 1 {
			path := m[1]
			if path == "/" || !strings.HasPrefix(path, "/") || strings.ContainsAny(path, "*$") {
				continue
			}
			out.Paths = append(out.Paths, path)
		}
	}
	return out
}

// sitemapDocument covers both <urlset> and <sitemapindex>
type sitemapDocument struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// seedFromRobots seeds the robots paths and returns the sitemap locations it
// names
func (r *discoveryRun) seedFromRobots(ctx context.Context) []string {
	robotsURL := r.target.URL("/robots.txt")
	snap, err := r.get(ctx, robotsURL)
	if err != nil || snap.Status != http.StatusOK {
		r.logger.Debug().Str("url", robotsURL).Err(err).Msg("No robots.txt")
		return nil
	}

	directives := parseRobots(string(snap.Body))
	for _, path := range directives.Paths {
		u, ok := r.normalizeInScope(path, r.target.BaseURL)
		if !ok {
			continue
		}
		if r.seed(u, models.ProvenanceRobots, robotsURL) {
			r.stats.RobotsURLs++
		}
	}

	var sitemaps []string
	for _, loc := range directives.Sitemaps {
		if u, ok := r.normalizeInScope(loc, r.target.BaseURL); ok {
			sitemaps = append(sitemaps, u)
		}
	}
	return sitemaps
}

// seedFromSitemaps walks the default sitemap plus the given roots. Nested
// indexes are followed up to the configured depth; every sitemap is fetched
// at most once.
func (r *discoveryRun) seedFromSitemaps(ctx context.Context, roots []string) {
	visited := make(map[string]struct{})
	all := append([]string{r.target.URL("/sitemap.xml")}, roots...)
	for _, root := range all {
		r.readSitemap(ctx, root, 1, visited)
	}
}

func (r *discoveryRun) readSitemap(ctx context.Context, sitemapURL string, depth int, visited map[string]struct{}) {
	if depth > r.engine.cfg.SitemapMaxDepth || ctx.Err() != nil {
		return
	}
	if _, seen := visited[sitemapURL]; seen {
		return
	}
	visited[sitemapURL] = struct{}{}

	snap, err := r.get(ctx, sitemapURL)
	if err != nil || snap.Status != http.StatusOK {
		r.logger.Debug().Str("url", sitemapURL).Err(err).Msg("Sitemap unavailable")
		return
	}

	var doc sitemapDocument
	if err := xml.Unmarshal(snap.Body, &doc); err != nil {
		r.logger.Debug().Str("url", sitemapURL).Err(err).Msg("Sitemap is not valid XML")
		return
	}

	base, _ := url.Parse(sitemapURL)
	switch doc.XMLName.Local {
	case "sitemapindex":
		for _, s := range doc.Sitemaps {
			if nested, ok := r.normalizeInScope(s.Loc, base); ok {
				r.readSitemap(ctx, nested, depth+1, visited)
			}
		}
	case "urlset":
		for _, entry := range doc.URLs {
			if r.stats.SitemapURLs >= r.engine.cfg.MaxSitemapURLs {
				return
			}
			u, ok := r.normalizeInScope(entry.Loc, base)
			if !ok {
				continue
			}
			if r.seed(u, models.ProvenanceSitemap, sitemapURL) {
				r.stats.SitemapURLs++
			}
		}
	}
}

// seed records a robots or sitemap URL and queues it for crawling unless it
// is a static asset. It reports whether u was new to the discovery set.
func (r *discoveryRun) seed(u string, source models.Provenance, foundOn string) bool {
	if !r.set.add(u, source, foundOn) {
		return false
	}
	if !extractor.IsStaticAsset(u) {
		r.frontier.push(u)
	}
	return true
}

// seedFromRenderedHomepage adds the URLs of the rendered homepage DOM
func (r *discoveryRun) seedFromRenderedHomepage(ctx context.Context, homepage string) {
	if r.engine.renderer == nil {
		return
	}

	html, err := r.engine.renderer.Render(ctx, homepage, r.target.InScopeURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", homepage).Msg("Headless render failed")
		return
	}

	base, _ := url.Parse(homepage)
	for _, u := range r.extractor.Extract(html, base) {
		r.discover(u, models.ProvenanceHeadless, homepage, 0)
	}
}

func (r *discoveryRun) normalizeInScope(ref string, base *url.URL) (string, bool) {
	u, err := urlhandler.ResolveURL(strings.TrimSpace(ref), base)
	if err != nil || !r.target.InScope(u) {
		return "", false
	}
	return u, true
}
