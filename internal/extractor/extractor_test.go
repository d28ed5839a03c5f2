package extractor

import (
	"net/url"
	"strings"
	"testing"

	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(t *testing.T, rules ...Rule) (*Extractor, *url.URL) {
	t.Helper()
	target, err := urlhandler.NewTarget("example.com")
	require.NoError(t, err)
	base, err := url.Parse("https://example.com/")
	require.NoError(t, err)
	return New(target, zerolog.Nop(), rules...), base
}

func TestExtract_HomepageAPILink(t *testing.T) {
	e, base := newExtractor(t)

	urls := e.Extract(`<html><body><a href="/api/users">Users</a></body></html>`, base)

	require.Contains(t, urls, "https://example.com/api/users")
	assert.True(t, IsAPILike("https://example.com/api/users"))
}

func TestExtract_ScopeAndSchemes(t *testing.T) {
	e, base := newExtractor(t)
	html := `<html><body>
		<a href="https://api.example.com/v1/">sub</a>
		<a href="https://evil.com/api/">evil</a>
		<a href="https://example.com.evil.com/">lookalike</a>
		<a href="mailto:root@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="#top">top</a>
		<a href="/docs#section">docs</a>
		<img src="data:image/png;base64,AAAA">
	</body></html>`

	urls := e.Extract(html, base)

	assert.ElementsMatch(t, []string{"https://api.example.com/v1/", "https://example.com/docs"}, urls)
}

func TestExtract_ResolvesAgainstPageURL(t *testing.T) {
	e, _ := newExtractor(t)
	page, _ := url.Parse("https://example.com/blog/post/")

	urls := e.Extract(`<a href="comments?id=3#c1">c</a><a href="../archive">a</a>`, page)

	assert.Equal(t, []string{
		"https://example.com/blog/post/comments?id=3",
		"https://example.com/blog/archive",
	}, urls)
}

func TestExtract_DedupAndIdempotence(t *testing.T) {
	e, base := newExtractor(t)
	body := `<a href="/api/users">x</a><a href="/api/users#again">y</a>
	<script>fetch("/api/users"); axios.get('/api/orders'); fetch("/api/users?page=2")</script>`

	first := e.Extract(body, base)
	second := e.Extract(body, base)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
	seen := map[string]bool{}
	for _, u := range first {
		assert.False(t, seen[u], "duplicate %s", u)
		seen[u] = true
	}
}

func TestRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		text string
		want []string
	}{
		{
			name: "html attributes",
			rule: HTMLAttributeRule,
			text: `<form action="/login"></form><object data="/flash.swf"></object><link href="/s.css">`,
			want: []string{"/s.css", "/login", "/flash.swf"},
		},
		{
			name: "attribute regex inside script string",
			rule: AttributeRegexRule,
			text: `el.innerHTML = '<a href="/admin/panel">x</a>'`,
			want: []string{"/admin/panel"},
		},
		{
			name: "keyed literals",
			rule: KeyedLiteralRule,
			text: `const cfg = {url: "/api/config", "endpoint": "https://example.com/hook", path: "relative-name"}`,
			want: []string{"/api/config", "https://example.com/hook"},
		},
		{
			name: "fetch",
			rule: FetchCallRule,
			text: "fetch('/api/items'); fetch ( `/api/stats` )",
			want: []string{"/api/items", "/api/stats"},
		},
		{
			name: "verb method calls",
			rule: VerbMethodCallRule,
			text: `axios.post("/api/login"); $.getJSON('/data/feed'); http.get("/status"); $http.delete('/api/x')`,
			want: []string{"/api/login", "/data/feed", "/status", "/api/x"},
		},
		{
			name: "ajax",
			rule: AjaxCallRule,
			text: `$.ajax({ type: "POST", url: "/api/save", data: d })`,
			want: []string{"/api/save"},
		},
		{
			name: "xhr open",
			rule: XHROpenRule,
			text: `xhr.open("PATCH", "/api/profile", true)`,
			want: []string{"/api/profile"},
		},
		{
			name: "api literals with template cut",
			rule: APILiteralRule,
			text: "const a = `/api/users/${id}/posts`; const b = '/v2/search'; const c = \"/static/data.json\"; const d = 'application/json'",
			want: []string{"/api/users/", "/v2/search", "/static/data.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule(tt.text, nil))
		})
	}
}

func TestJSluiceRule(t *testing.T) {
	refs := JSluiceRule(`function load() { return fetch("/api/orders"); }`, nil)
	assert.Contains(t, refs, "/api/orders")

	assert.Nil(t, JSluiceRule("<html><body></body></html>", nil))
}

func TestExtract_CustomRules(t *testing.T) {
	only := func(text string, _ *url.URL) []string {
		return strings.Fields(text)
	}
	e, base := newExtractor(t, only)

	urls := e.Extract("/a /b https://other.org/c", base)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestScriptURLs(t *testing.T) {
	e, base := newExtractor(t)
	var b strings.Builder
	b.WriteString(`<script src="https://cdn.other.net/lib.js"></script>`)
	b.WriteString(`<script src="/app.js"></script><script src="/app.js"></script>`)
	for i := 0; i < 30; i++ {
		b.WriteString(`<script src="/chunk-` + string(rune('a'+i%26)) + string(rune('a'+i/26)) + `.js"></script>`)
	}

	scripts := e.ScriptURLs(b.String(), base, 20)

	require.Len(t, scripts, 20)
	assert.Equal(t, "https://example.com/app.js", scripts[0])
	for _, s := range scripts {
		assert.True(t, strings.HasPrefix(s, "https://example.com/"))
	}
	assert.Nil(t, e.ScriptURLs(b.String(), base, 0))
}

func TestIsAPILike(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/api/users", true},
		{"https://example.com/graphql", true},
		{"https://example.com/static/manifest.json", true},
		{"https://example.com/v2/items", true},
		{"https://example.com/swagger-ui/", true},
		{"https://example.com/oauth/authorize", true},
		{"https://example.com/search?next=/admin", true},
		{"https://example.com/about", false},
		{"https://example.com/blog/2024/post", false},
		{"https://api.example.com/about", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAPILike(tt.url), tt.url)
	}
}

func TestHasAPIShape(t *testing.T) {
	assert.True(t, HasAPIShape("https://example.com/feed.xml"))
	assert.True(t, HasAPIShape("https://example.com/openapi.yaml"))
	assert.True(t, HasAPIShape("https://example.com/rest/items"))
	assert.False(t, HasAPIShape("https://example.com/index.html"))
}

func TestIsInjectionCandidate(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/index.php", true},
		{"https://example.com/view?id=4", true},
		{"https://example.com/list?cat_id=2", true},
		{"https://example.com/find?q=shoes", true},
		{"https://example.com/shop?product_code=9", true},
		{"https://example.com/shop?sort=asc", false},
		{"https://example.com/about", false},
		{"https://example.com/valid?identity=x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsInjectionCandidate(tt.url), tt.url)
	}
}

func TestIsStaticAsset(t *testing.T) {
	assert.True(t, IsStaticAsset("https://example.com/app.JS"))
	assert.True(t, IsStaticAsset("https://example.com/logo.png?v=2"))
	assert.False(t, IsStaticAsset("https://example.com/api/users"))
	assert.False(t, IsStaticAsset("https://example.com/page.php"))
}
