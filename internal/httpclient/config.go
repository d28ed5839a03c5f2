package httpclient

import (
	"net/http"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/config"
)

// HTTPClientConfig holds the transport and request settings of an HTTPClient
type HTTPClientConfig struct {
	Timeout             time.Duration
	InsecureSkipVerify  bool
	FollowRedirects     bool
	MaxRedirects        int
	UserAgent           string
	CustomHeaders       map[string]string
	MaxContentSize      int // bytes kept from a response body, 0 for no limit
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
	EnableHTTP2         bool
	Proxy               string
	// WrapTransport, when set, decorates the base transport (metrics)
	WrapTransport       func(http.RoundTripper) http.RoundTripper
}

// DefaultHTTPClientConfig returns the compiled-in client settings
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             config.DefaultProbeTimeout,
		InsecureSkipVerify:  config.DefaultInsecureSkipTLS,
		FollowRedirects:     config.DefaultFollowRedirects,
		MaxRedirects:        config.DefaultMaxRedirects,
		UserAgent:           config.DefaultUserAgent,
		CustomHeaders:       map[string]string{},
		MaxContentSize:      config.DefaultMaxContentBytes,
		MaxIdleConns:        config.DefaultMaxIdleConns,
		MaxIdleConnsPerHost: config.DefaultMaxConnsPerHost,
		MaxConnsPerHost:     config.DefaultMaxConnsPerHost,
		IdleConnTimeout:     config.DefaultIdleConnTimeout,
		TLSHandshakeTimeout: config.DefaultTLSHandshakeTime,
		DialTimeout:         config.DefaultDialTimeout,
		KeepAlive:           30 * time.Second,
		EnableHTTP2:         config.DefaultEnableHTTP2,
	}
}

// FromConfig maps the request settings of the http_client_config section.
// Pooling and HTTP/2 are applied through the builder.
func FromConfig(cfg config.HTTPClientConfig) HTTPClientConfig {
	c := DefaultHTTPClientConfig()
	c.Timeout = cfg.Timeout
	c.InsecureSkipVerify = cfg.InsecureSkipVerify
	c.FollowRedirects = cfg.FollowRedirects
	c.MaxRedirects = cfg.MaxRedirects
	c.UserAgent = cfg.UserAgent
	c.MaxContentSize = cfg.MaxContentBytes
	c.Proxy = cfg.Proxy
	if cfg.IdleConnTimeout > 0 {
		c.IdleConnTimeout = cfg.IdleConnTimeout
	}
	if cfg.DialTimeout > 0 {
		c.DialTimeout = cfg.DialTimeout
	}
	if cfg.TLSHandshakeTimeout > 0 {
		c.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	}
	return c
}
