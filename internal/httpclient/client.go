package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// HTTPRequest describes one outbound request
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    io.Reader
	Context context.Context
}

// HTTPResponse is a fully read response. Body holds at most MaxContentSize
// bytes; Truncated reports whether more was available.
type HTTPResponse struct {
	StatusCode    int
	Headers       map[string]string
	Body          []byte
	Truncated     bool
	ContentLength int64 // untruncated length when known, else len(Body)
	FinalURL      string
}

// RedirectGuard decides whether a redirect target may be requested
type RedirectGuard func(target *url.URL) bool

type redirectGuardKey struct{}

// ContextWithRedirectGuard attaches a guard consulted before every redirect
// hop of requests made with the returned context. A refused hop stops the
// chain and the redirect response itself is returned.
func ContextWithRedirectGuard(ctx context.Context, guard RedirectGuard) context.Context {
	return context.WithValue(ctx, redirectGuardKey{}, guard)
}

func redirectGuardFrom(ctx context.Context) RedirectGuard {
	guard, _ := ctx.Value(redirectGuardKey{}).(RedirectGuard)
	return guard
}

// HTTPClient wraps net/http.Client. It performs exactly one attempt per call;
// there is no retry layer.
type HTTPClient struct {
	client    *http.Client
	transport http.RoundTripper
	config    HTTPClientConfig
	logger    zerolog.Logger
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig, logger zerolog.Logger) (*HTTPClient, error) {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify, //nolint:gosec // operator opt-in
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		}
	}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, common.WrapError(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Info().Str("proxy", config.Proxy).Msg("HTTP client configured with proxy")
	}

	var roundTripper http.RoundTripper = transport
	if config.WrapTransport != nil {
		roundTripper = config.WrapTransport(transport)
	}

	client := &http.Client{
		Transport:     roundTripper,
		Timeout:       config.Timeout,
		CheckRedirect: checkRedirect(config),
	}

	logger.Debug().
		Dur("timeout", config.Timeout).
		Bool("follow_redirects", config.FollowRedirects).
		Int("max_redirects", config.MaxRedirects).
		Bool("http2_enabled", config.EnableHTTP2).
		Msg("HTTP client created")

	return &HTTPClient{
		client:    client,
		transport: roundTripper,
		config:    config,
		logger:    logger,
	}, nil
}

func checkRedirect(config HTTPClientConfig) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !config.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if config.MaxRedirects > 0 && len(via) >= config.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
		}
		if guard := redirectGuardFrom(req.Context()); guard != nil && !guard(req.URL) {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// Transport exposes the underlying round tripper so other fetchers (the
// crawler's collector) share its connection pool and TLS settings.
func (c *HTTPClient) Transport() http.RoundTripper {
	return c.transport
}

// Config returns the client settings
func (c *HTTPClient) Config() HTTPClientConfig {
	return c.config
}

// Get performs a single GET
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*HTTPResponse, error) {
	return c.Do(&HTTPRequest{URL: rawURL, Method: http.MethodGet, Context: ctx})
}

// Do performs one HTTP request and reads the body up to MaxContentSize.
func (c *HTTPClient) Do(req *HTTPRequest) (*HTTPResponse, error) {
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return nil, common.WrapError(err, "failed to create HTTP request")
	}

	for key, value := range c.config.CustomHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "*/*")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, common.NewNetworkError(req.URL, "request failed", err)
	}
	defer resp.Body.Close()

	body, truncated, err := c.readBody(resp.Body)
	if err != nil {
		return nil, common.NewNetworkError(req.URL, "failed to read response body", err)
	}

	httpResp := &HTTPResponse{
		StatusCode:    resp.StatusCode,
		Headers:       make(map[string]string, len(resp.Header)),
		Body:          body,
		Truncated:     truncated,
		ContentLength: int64(len(body)),
		FinalURL:      resp.Request.URL.String(),
	}
	if truncated && resp.ContentLength > 0 {
		httpResp.ContentLength = resp.ContentLength
	}

	for key, values := range resp.Header {
		if len(values) > 0 {
			httpResp.Headers[key] = values[0]
		}
	}

	return httpResp, nil
}

func (c *HTTPClient) readBody(r io.Reader) ([]byte, bool, error) {
	if c.config.MaxContentSize <= 0 {
		b, err := io.ReadAll(r)
		return b, false, err
	}
	limit := int64(c.config.MaxContentSize)
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > limit {
		return b[:limit], true, nil
	}
	return b, false, nil
}

// ContentType returns the lower-cased media type of the response without parameters
func (r *HTTPResponse) ContentType() string {
	ct := r.Headers["Content-Type"]
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
