package urlhandler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dev-fuadhasan/openapi/internal/common"
)

var (
	schemePrefixRegex = regexp.MustCompile(`(?i)^https?://`)
	domainShapeRegex  = regexp.MustCompile(`(?i)^([a-z0-9]+(-[a-z0-9]+)*\.)+[a-z]{2,}$`)
)

// NormalizeDomain strips an http(s):// prefix, trailing slashes and
// surrounding whitespace from user input
func NormalizeDomain(input string) string {
	domain := strings.TrimSpace(input)
	domain = schemePrefixRegex.ReplaceAllString(domain, "")
	domain = strings.TrimRight(domain, "/")
	return strings.TrimSpace(domain)
}

// ValidateDomain checks the hostname shape of an already normalized domain
func ValidateDomain(domain string) error {
	if domain == "" {
		return common.NewValidationError("domain", domain, "Domain is required")
	}
	if !domainShapeRegex.MatchString(domain) {
		return common.NewValidationError("domain", domain, "Invalid domain format")
	}
	return nil
}

// Target is the scan root: a hostname that bounds scope and the base URL
// that fixed paths are joined to.
type Target struct {
	Domain  string
	BaseURL *url.URL
}

// NewTarget normalizes and validates a domain and roots it at https://domain/
func NewTarget(input string) (*Target, error) {
	domain := NormalizeDomain(input)
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	domain = strings.ToLower(domain)
	return &Target{
		Domain:  domain,
		BaseURL: &url.URL{Scheme: "https", Host: domain, Path: "/"},
	}, nil
}

// NewTargetWithBase builds a target for an explicit base URL, such as a local
// listener. The domain shape is not validated; scope is the base hostname.
func NewTargetWithBase(baseURL string) (*Target, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, common.WrapError(err, "invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Hostname() == "" {
		return nil, common.NewValidationError("base_url", baseURL, "base URL must be absolute http(s)")
	}
	u.Path = "/"
	u.RawQuery = ""
	u.Fragment = ""
	return &Target{
		Domain:  strings.ToLower(u.Hostname()),
		BaseURL: u,
	}, nil
}

// URL joins a path (which may carry a query) to the target base
func (t *Target) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimRight(t.BaseURL.String(), "/") + path
	}
	return t.BaseURL.ResolveReference(ref).String()
}

// String returns the base URL
func (t *Target) String() string {
	return t.BaseURL.String()
}

// InScope reports whether rawURL is an http(s) URL on the target host or a subdomain
func (t *Target) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return t.InScopeURL(u)
}

// InScopeURL is InScope for a parsed URL
func (t *Target) InScopeURL(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return HostInScope(u.Hostname(), t.Domain)
}

// HostInScope reports whether host equals domain or ends with "."+domain
func HostInScope(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(domain)
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
