package urlhandler

import (
	"errors"
	"net/url"
	"testing"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "strip fragment keep query", input: "https://Example.com/api/users?id=1#top", expected: "https://example.com/api/users?id=1"},
		{name: "empty path becomes slash", input: "HTTPS://example.com", expected: "https://example.com/"},
		{name: "port kept", input: "http://example.com:8080/x", expected: "http://example.com:8080/x"},
		{name: "relative rejected", input: "/api/users", wantErr: true},
		{name: "empty rejected", input: "   ", wantErr: true},
		{name: "invalid rejected", input: "://invalid-url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/post.html")

	got, err := ResolveURL("/api/users", base)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/users", got)

	got, err = ResolveURL("comments.json#x", base)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/blog/comments.json", got)

	got, err = ResolveURL("//cdn.example.com/app.js", base)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/app.js", got)

	_, err = ResolveURL("relative", nil)
	assert.Error(t, err)
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeDomain("  https://example.com/ "))
	assert.Equal(t, "example.com", NormalizeDomain("HTTP://example.com//"))
	assert.Equal(t, "sub.example.com", NormalizeDomain("sub.example.com"))
}

func TestValidateDomain(t *testing.T) {
	valid := []string{"example.com", "my-site.co.uk", "API.Example.IO", "a1.b2.dev"}
	invalid := []string{"", "not a domain", "localhost", "-bad.com", "bad-.com", "example.c", "127.0.0.1", "exa_mple.com"}

	for _, d := range valid {
		assert.NoError(t, ValidateDomain(d), d)
	}
	for _, d := range invalid {
		err := ValidateDomain(d)
		assert.Error(t, err, d)
		assert.True(t, errors.Is(err, common.ErrInvalidInput), d)
	}
}

func TestNewTarget(t *testing.T) {
	target, err := NewTarget("https://Example.com/")
	require.NoError(t, err)
	assert.Equal(t, "example.com", target.Domain)
	assert.Equal(t, "https://example.com/", target.String())
	assert.Equal(t, "https://example.com/.env", target.URL("/.env"))
	assert.Equal(t, "https://example.com/index.php?id=1", target.URL("/index.php?id=1"))

	_, err = NewTarget("not a domain")
	assert.Error(t, err)
}

func TestNewTargetWithBase(t *testing.T) {
	target, err := NewTargetWithBase("http://127.0.0.1:8080/ignored?x=1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", target.Domain)
	assert.Equal(t, "http://127.0.0.1:8080/api/", target.URL("/api/"))

	_, err = NewTargetWithBase("ftp://example.com")
	assert.Error(t, err)
}

func TestTarget_InScope(t *testing.T) {
	target, err := NewTarget("example.com")
	require.NoError(t, err)

	tests := []struct {
		url   string
		scope bool
	}{
		{"https://example.com/a", true},
		{"http://api.example.com/v1/", true},
		{"https://deep.api.example.com:8443/", true},
		{"https://EXAMPLE.COM/", true},
		{"https://notexample.com/", false},
		{"https://example.com.evil.net/", false},
		{"https://evil.net/?next=example.com", false},
		{"mailto:admin@example.com", false},
		{"javascript:alert(1)", false},
		{"ftp://example.com/file", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.scope, target.InScope(tt.url), tt.url)
	}
}
