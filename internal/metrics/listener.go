package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/rs/zerolog"
)

// HealthCheck reports an error when the process should not take new work
type HealthCheck func() error

// Listener serves /metrics and /healthz on their own address
type Listener struct {
	cfg      config.MetricsConfig
	recorder *Recorder
	health   HealthCheck
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
	mu       sync.Mutex
}

// NewListener creates the listener; Start binds it
func NewListener(cfg config.MetricsConfig, recorder *Recorder, health HealthCheck, logger zerolog.Logger) *Listener {
	if cfg.Path == "" {
		cfg.Path = config.DefaultMetricsPath
	}
	return &Listener{
		cfg:      cfg,
		recorder: recorder,
		health:   health,
		logger:   logger.With().Str("component", "MetricsListener").Logger(),
	}
}

// Handler returns the mux served by the listener
func (l *Listener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(l.cfg.Path, l.recorder.Handler())
	mux.HandleFunc("/healthz", l.handleHealth)
	return mux
}

func (l *Listener) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if l.health != nil {
		if err := l.health(); err != nil {
			status = map[string]string{"status": "degraded", "reason": err.Error()}
			code = http.StatusServiceUnavailable
		}
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// Start binds the address and serves in the background
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ln, err := net.Listen("tcp", l.cfg.ListenAddress)
	if err != nil {
		return err
	}
	l.listener = ln
	l.server = &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error().Err(err).Msg("Metrics listener stopped")
		}
	}()

	l.logger.Info().Str("address", ln.Addr().String()).Str("path", l.cfg.Path).Msg("Metrics listener started")
	return nil
}

// Addr returns the bound address, or "" before Start
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

// Shutdown stops the listener gracefully
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server == nil {
		return nil
	}
	return l.server.Shutdown(ctx)
}
