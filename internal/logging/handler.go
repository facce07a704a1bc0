// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package logging provides structured logging with OpenTelemetry trace
// context and the authenticated account attached to each record.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Options configures Setup.
type Options struct {
	Service string
	Version string
	// Format is "json" or "text". Empty means json.
	Format string
	Level  slog.Level
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// contextHandler wraps a slog.Handler to add request-scoped attributes.
type contextHandler struct {
	handler slog.Handler
	service string
	version string
}

// Handle adds service, trace and account attributes to the record.
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	if account := auth.AccountFromContext(ctx); account != nil {
		r.AddAttrs(slog.String("account_id", account.ID.String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

// Enabled returns true if the level is enabled.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{
		handler: h.handler.WithAttrs(attrs),
		service: h.service,
		version: h.version,
	}
}

// WithGroup returns a new handler with the given group.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{
		handler: h.handler.WithGroup(name),
		service: h.service,
		version: h.version,
	}
}

// ParseLevel maps debug, info, warn (or warning) and error to a slog.Level.
// Case is ignored.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, oops.Code("LOG_LEVEL_INVALID").
			With("level", s).
			Errorf("unknown log level %q: must be debug, info, warn or error", s)
	}
}

// Setup creates a configured slog.Logger.
func Setup(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var base slog.Handler
	if opts.Format == "text" {
		base = slog.NewTextHandler(w, handlerOpts)
	} else {
		base = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(&contextHandler{
		handler: base,
		service: opts.Service,
		version: opts.Version,
	})
}

// SetDefault builds a logger with Setup and installs it as the slog default.
func SetDefault(opts Options) *slog.Logger {
	logger := Setup(opts)
	slog.SetDefault(logger)
	return logger
}
