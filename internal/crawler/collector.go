package crawler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/httpclient"
	"github.com/gocolly/colly/v2"
)

// requestedURLKey carries the frontier URL through colly so a response can be
// matched to its entry even after redirects
const requestedURLKey = "requested_url"

// pageSnapshot is one response as recorded by the crawl
type pageSnapshot struct {
	URL         string
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
	Err         error
}

func (s *pageSnapshot) isHTML() bool {
	if s == nil || s.Err != nil || s.Status != http.StatusOK {
		return false
	}
	ct := strings.ToLower(s.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// roundBuffer collects colly callback results for the owner goroutine
type roundBuffer struct {
	mu        sync.Mutex
	snapshots map[string]*pageSnapshot
}

func newRoundBuffer() *roundBuffer {
	return &roundBuffer{snapshots: make(map[string]*pageSnapshot)}
}

func (b *roundBuffer) put(s *pageSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.snapshots[s.URL]; !ok {
		b.snapshots[s.URL] = s
	}
}

// drain returns the recorded snapshots in the order of urls and resets the buffer
func (b *roundBuffer) drain(urls []string) []*pageSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*pageSnapshot, 0, len(urls))
	for _, u := range urls {
		if s, ok := b.snapshots[u]; ok {
			out = append(out, s)
		}
	}
	b.snapshots = make(map[string]*pageSnapshot)
	return out
}

// newCollector creates the async colly collector for one Discover call. Every
// request, including each redirect hop, is checked against the target scope.
func (r *discoveryRun) newCollector(ctx context.Context, buf *roundBuffer) (*colly.Collector, error) {
	clientCfg := r.engine.client.Config()

	c := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(clientCfg.UserAgent),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(clientCfg.MaxContentSize),
	)
	c.SetRequestTimeout(r.engine.requestTimeout)
	c.WithTransport(r.engine.client.Transport())

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: r.engine.cfg.RoundSize,
	}); err != nil {
		return nil, common.WrapError(err, "error setting up colly limit rule")
	}

	c.SetRedirectHandler(r.redirectPolicy(clientCfg.FollowRedirects, clientCfg.MaxRedirects))

	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
			return
		}
		if !r.target.InScopeURL(req.URL) {
			r.logger.Warn().Str("url", req.URL.String()).Msg("Abort out-of-scope request")
			req.Abort()
		}
	})

	c.OnResponse(func(resp *colly.Response) {
		snap := &pageSnapshot{
			URL:      requestedURL(resp),
			FinalURL: resp.Request.URL.String(),
			Status:   resp.StatusCode,
			Body:     resp.Body,
		}
		if resp.Headers != nil {
			snap.ContentType = resp.Headers.Get("Content-Type")
		}
		buf.put(snap)
	})

	c.OnError(func(resp *colly.Response, err error) {
		r.logger.Debug().Str("url", resp.Request.URL.String()).Int("status", resp.StatusCode).Err(err).Msg("Page fetch failed")
		buf.put(&pageSnapshot{
			URL:    requestedURL(resp),
			Status: resp.StatusCode,
			Err:    err,
		})
	})

	return c, nil
}

func (r *discoveryRun) redirectPolicy(follow bool, maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !follow || (maxRedirects > 0 && len(via) >= maxRedirects) {
			return http.ErrUseLastResponse
		}
		if !r.target.InScopeURL(req.URL) {
			r.logger.Warn().Str("location", req.URL.String()).Msg("Not following out-of-scope redirect")
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// fetchRound requests every URL of a round and waits for all of them
func (r *discoveryRun) fetchRound(c *colly.Collector, buf *roundBuffer, urls []string) []*pageSnapshot {
	for _, u := range urls {
		reqCtx := colly.NewContext()
		reqCtx.Put(requestedURLKey, u)
		if err := c.Request(http.MethodGet, u, nil, reqCtx, nil); err != nil {
			r.logger.Debug().Str("url", u).Err(err).Msg("Error queueing visit")
		}
	}
	c.Wait()
	return buf.drain(urls)
}

func requestedURL(resp *colly.Response) string {
	if resp.Ctx != nil {
		if u := resp.Ctx.Get(requestedURLKey); u != "" {
			return u
		}
	}
	return resp.Request.URL.String()
}

// get performs one scoped GET through the shared client
func (r *discoveryRun) get(ctx context.Context, rawURL string) (*pageSnapshot, error) {
	if !r.target.InScope(rawURL) {
		return nil, common.NewScopeError(rawURL, r.target.Domain)
	}

	ctx, cancel := context.WithTimeout(ctx, r.engine.requestTimeout)
	defer cancel()
	ctx = httpclient.ContextWithRedirectGuard(ctx, r.target.InScopeURL)

	resp, err := r.engine.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &pageSnapshot{
		URL:         rawURL,
		FinalURL:    resp.FinalURL,
		Status:      resp.StatusCode,
		ContentType: resp.Headers["Content-Type"],
		Body:        resp.Body,
	}, nil
}
