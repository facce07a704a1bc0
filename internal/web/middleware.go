// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatehouse/gatehouse/internal/auth"
)

var tracer = otel.Tracer("gatehouse/web")

// databaseCheckTimeout bounds the per-request database ping.
const databaseCheckTimeout = 2 * time.Second

// requireDatabase answers 500 {message:"Database connection error"} when
// the database does not respond to a ping.
func (a *api) requireDatabase(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), databaseCheckTimeout)
		err := a.Database.Ping(ctx)
		cancel()
		if err != nil {
			a.Logger.WarnContext(r.Context(), "database unavailable", "error", err)
			writeMessage(w, http.StatusInternalServerError, msgDatabaseError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tokenBody struct {
	Token string `json:"token"`
}

// authenticate reads the token from the JSON body, resolves it to an
// account and attaches the account to the request context. A body that is
// not JSON counts as carrying no token.
func (a *api) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body tokenBody
		if err := decodeBody(w, r, &body); err != nil {
			body.Token = ""
		}

		account, err := a.Gate.Authenticate(r.Context(), body.Token)
		a.Metrics.RecordGateDecision("authenticate", outcomeOf(err))
		if err != nil {
			writeGateError(w, r, a.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), account)))
	})
}

// requireAdmin lets the request through only for admin accounts. It must
// run after authenticate.
func (a *api) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := a.Gate.AuthorizeAdmin(auth.AccountFromContext(r.Context()))
		a.Metrics.RecordGateDecision("authorize_admin", outcomeOf(err))
		if err != nil {
			writeGateError(w, r, a.Logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err //nolint:wrapcheck // ResponseWriter passthrough
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// logRequests traces and logs each request and observes its latency.
// Responses log at ERROR for 5xx, WARN for 4xx and INFO otherwise.
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), "http.request", trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		a.Metrics.ObserveHTTPRequest(route, rec.status, elapsed)

		span.SetName(route)
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", rec.status),
		)
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		a.Logger.Log(ctx, level, "response", slog.Group("http",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"bytes_sent", rec.bytes,
			"duration_ms", elapsed.Milliseconds(),
		))
	})
}

// recoverPanics turns a handler panic into a logged 500.
func (a *api) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
				panic(p)
			}
			a.Logger.ErrorContext(r.Context(), "request panic",
				slog.Group("http", "method", r.Method, "path", r.URL.Path),
				slog.Group("error", "panic", p, "stack", string(debug.Stack())),
			)
			writeMessage(w, http.StatusInternalServerError, msgInternalError)
		}()
		next.ServeHTTP(w, r)
	})
}

// corsAllowMethods is the default method list answered to preflights.
const corsAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// securityHeaders sets conservative response headers and allows
// cross-origin callers. Preflight requests are answered directly.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'self'")
		h.Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
				h.Add("Vary", "Access-Control-Request-Headers")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
