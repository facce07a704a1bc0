// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker reports why the service cannot take traffic, or nil
// when it can.
type ReadinessChecker func(ctx context.Context) error

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	gatherer   prometheus.Gatherer
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server exposing gatherer.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
func NewServer(addr string, gatherer prometheus.Gatherer, readinessChecker ReadinessChecker) *Server {
	return &Server{
		addr:     addr,
		gatherer: gatherer,
		isReady:  readinessChecker,
	}
}

// Start begins serving observability endpoints.
// It returns an error channel that will receive any errors from the HTTP server
// after it starts. The channel is closed when the server stops gracefully.
// Callers should monitor this channel to detect server failures.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Kubernetes-style health probes
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	// Create buffered error channel so the goroutine doesn't block
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	// Use CompareAndSwap to atomically transition from running to stopped.
	// This prevents a race where a concurrent Start() could succeed between
	// checking the running state and setting it to false.
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleLiveness returns 200 if the process is running.
// This is a simple check that the process is alive.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// readinessTimeout bounds a single readiness probe.
const readinessTimeout = 2 * time.Second

// handleReadiness returns 200 if the service is ready to accept requests,
// or 503 with the reason if not.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.isReady(ctx); err != nil {
		slog.WarnContext(ctx, "readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("not ready\n"))
		return
	}

	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}
