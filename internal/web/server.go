// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web exposes the register, login and ping operations over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
)

// Server serves the public API.
type Server struct {
	addr       string
	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server for handler. addr is in "host:port" form.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// Start binds the listener and serves in the background. The returned
// channel receives a serve failure and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("HTTP_SERVER_RUNNING").Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_http_server").Wrap(err)
		}
	}

	slog.Info("http server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
