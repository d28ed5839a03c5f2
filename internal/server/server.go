// Package server exposes scans over HTTP: POST /scan with {"domain": "..."}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/dev-fuadhasan/openapi/internal/metrics"
	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/dev-fuadhasan/openapi/internal/urlhandler"
	"github.com/rs/zerolog"
)

const (
	scanPath = "/scan"

	msgNotFound           = "Not found. Use POST /scan"
	msgDomainRequired     = "Domain is required"
	msgInvalidDomain      = "Invalid domain format"
	msgServiceUnavailable = "Service temporarily unavailable"
	msgInternalError      = "Internal server error"
)

// Scanner runs one scan of a validated target
type Scanner interface {
	Scan(ctx context.Context, target *urlhandler.Target) (*models.ScanReport, error)
}

// Admitter refuses new scans under resource pressure
type Admitter interface {
	Admit() error
}

type scanRequest struct {
	Domain interface{} `json:"domain"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server is the HTTP shell around a Scanner
type Server struct {
	cfg        config.ServerConfig
	scanner    Scanner
	admitter   Admitter
	metrics    *metrics.Recorder
	logger     zerolog.Logger
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

// New creates a server; WithAdmitter and WithMetrics are optional
func New(cfg config.ServerConfig, scanner Scanner, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		scanner: scanner,
		logger:  logger.With().Str("component", "HTTPServer").Logger(),
	}
}

// WithAdmitter sets the admission check consulted before every scan
func (s *Server) WithAdmitter(a Admitter) *Server {
	s.admitter = a
	return s
}

// WithMetrics sets the recorder used for rejected requests
func (s *Server) WithMetrics(r *metrics.Recorder) *Server {
	s.metrics = r
	return s
}

// Handler returns the routed handler with CORS and panic recovery applied
func (s *Server) Handler() http.Handler {
	return s.recoveryMiddleware(corsMiddleware(http.HandlerFunc(s.route)))
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != scanPath {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
		return
	}
	s.handleScan(w, r)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug().Err(err).Msg("Unreadable scan request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgDomainRequired})
		return
	}

	domain, ok := req.Domain.(string)
	if !ok || domain == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgDomainRequired})
		return
	}

	target, err := urlhandler.NewTarget(domain)
	if err != nil {
		s.logger.Info().Str("domain", domain).Msg("Rejected malformed domain")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidDomain})
		return
	}

	if s.admitter != nil {
		if err := s.admitter.Admit(); err != nil {
			s.metrics.ScanRejected()
			s.logger.Warn().Err(err).Str("domain", target.Domain).Msg("Scan refused by admission control")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: msgServiceUnavailable})
			return
		}
	}

	report, err := s.scanner.Scan(r.Context(), target)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", target.Domain).Msg("Scan failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// corsMiddleware answers preflight requests for any path and marks every
// other response as readable cross-origin
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns a handler panic into a 500 carrying the panic value
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Msg("Panic in HTTP handler")
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:   msgInternalError,
					Message: fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	s.logger.Info().Str("address", ln.Addr().String()).Msg("HTTP server listening")
	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for running scans until ctx
// expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
