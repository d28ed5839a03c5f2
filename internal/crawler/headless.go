package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Renderer returns the DOM of a page after scripts ran. allow is consulted
// for every request the page makes; refused requests never leave the browser.
type Renderer interface {
	Render(ctx context.Context, pageURL string, allow func(*url.URL) bool) (string, error)
}

// HeadlessBrowserManager manages a pool of browser instances
type HeadlessBrowserManager struct {
	config      config.HeadlessBrowserConfig
	userAgent   string
	logger      zerolog.Logger
	browserPool chan *rod.Browser
	launcher    *launcher.Launcher
	mutex       sync.Mutex
	isRunning   bool
}

// NewHeadlessBrowserManager creates a new headless browser manager
func NewHeadlessBrowserManager(cfg config.HeadlessBrowserConfig, userAgent string, logger zerolog.Logger) *HeadlessBrowserManager {
	return &HeadlessBrowserManager{
		config:      cfg,
		userAgent:   userAgent,
		logger:      logger.With().Str("component", "HeadlessBrowserManager").Logger(),
		browserPool: make(chan *rod.Browser, cfg.PoolSize),
	}
}

// Start launches the browser and fills the pool
func (hbm *HeadlessBrowserManager) Start() error {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()

	if hbm.isRunning {
		return nil
	}
	if !hbm.config.Enabled {
		hbm.logger.Info().Msg("Headless browser is disabled in config")
		return nil
	}

	l := launcher.New()
	if hbm.config.ChromePath != "" {
		l = l.Bin(hbm.config.ChromePath)
	}
	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")
	if hbm.config.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	hbm.launcher = l

	for i := 0; i < hbm.config.PoolSize; i++ {
		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			hbm.logger.Error().Err(err).Int("browser_index", i).Msg("Failed to connect browser")
			continue
		}
		hbm.browserPool <- browser
	}

	hbm.isRunning = true
	hbm.logger.Info().Int("pool_size", hbm.config.PoolSize).Msg("Headless browser manager started")
	return nil
}

// Stop closes all browser instances and the launcher
func (hbm *HeadlessBrowserManager) Stop() {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()

	if !hbm.isRunning {
		return
	}

	close(hbm.browserPool)
	for browser := range hbm.browserPool {
		if browser != nil {
			_ = browser.Close()
		}
	}
	if hbm.launcher != nil {
		hbm.launcher.Cleanup()
	}

	hbm.isRunning = false
	hbm.logger.Info().Msg("Headless browser manager stopped")
}

func (hbm *HeadlessBrowserManager) getBrowser(ctx context.Context) (*rod.Browser, error) {
	hbm.mutex.Lock()
	running := hbm.isRunning
	hbm.mutex.Unlock()
	if !running {
		return nil, fmt.Errorf("headless browser manager not running")
	}

	select {
	case browser := <-hbm.browserPool:
		return browser, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Second):
		return nil, fmt.Errorf("timeout waiting for browser from pool")
	}
}

func (hbm *HeadlessBrowserManager) returnBrowser(browser *rod.Browser) {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()
	if !hbm.isRunning || browser == nil {
		return
	}
	select {
	case hbm.browserPool <- browser:
	default:
		_ = browser.Close()
	}
}

// Render loads pageURL, blocks every request allow refuses and returns the
// rendered HTML
func (hbm *HeadlessBrowserManager) Render(ctx context.Context, pageURL string, allow func(*url.URL) bool) (string, error) {
	browser, err := hbm.getBrowser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get browser: %w", err)
	}
	defer hbm.returnBrowser(browser)

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(hbm.config.PageLoadTimeoutSecs)*time.Second)
	defer cancel()

	page, err := browser.Context(timeoutCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	router := page.HijackRequests()
	if err := router.Add("*", "", func(h *rod.Hijack) {
		if !allow(h.Request.URL()) {
			hbm.logger.Debug().Str("url", h.Request.URL().String()).Msg("Blocked out-of-scope browser request")
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	}); err != nil {
		return "", fmt.Errorf("failed to install request filter: %w", err)
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  hbm.config.WindowWidth,
		Height: hbm.config.WindowHeight,
	}); err != nil {
		hbm.logger.Warn().Err(err).Msg("Failed to set viewport")
	}
	if hbm.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: hbm.userAgent}); err != nil {
			hbm.logger.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load timeout for %s: %w", pageURL, err)
	}
	if hbm.config.WaitAfterLoadMs > 0 {
		select {
		case <-time.After(time.Duration(hbm.config.WaitAfterLoadMs) * time.Millisecond):
		case <-timeoutCtx.Done():
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML for %s: %w", pageURL, err)
	}
	return html, nil
}
