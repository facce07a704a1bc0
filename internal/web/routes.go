// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, name, email, password string, isAdmin bool) (*auth.Account, error)
}

// Authenticator checks login credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Account, error)
}

// TokenIssuer issues an access token for an account id.
type TokenIssuer interface {
	Issue(accountID ulid.ULID) (string, error)
}

// Gate resolves and authorizes bearers of access tokens.
type Gate interface {
	Authenticate(ctx context.Context, token string) (*auth.Account, error)
	AuthorizeAdmin(account *auth.Account) error
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Recorder receives request metrics. observability.Metrics implements it.
type Recorder interface {
	RecordAuthRequest(operation, outcome string)
	RecordGateDecision(stage, outcome string)
	ObserveHTTPRequest(route string, code int, elapsed time.Duration)
}

// Deps are the collaborators the API is built from. Metrics and Logger
// are optional.
type Deps struct {
	Registration   Registrar
	Authentication Authenticator
	Tokens         TokenIssuer
	Gate           Gate
	Database       Pinger
	Metrics        Recorder
	Logger         *slog.Logger
}

func (d *Deps) validate() error {
	switch {
	case d.Registration == nil:
		return oops.Errorf("registration flow is required")
	case d.Authentication == nil:
		return oops.Errorf("authentication flow is required")
	case d.Tokens == nil:
		return oops.Errorf("token issuer is required")
	case d.Gate == nil:
		return oops.Errorf("access gate is required")
	case d.Database == nil:
		return oops.Errorf("database pinger is required")
	}
	return nil
}

// api holds the handlers and middleware state.
type api struct {
	Deps
}

// NewHandler builds the routed API:
//
//	POST /api/auth/register
//	POST /api/auth/login
//	GET  /api/utils/ping
//	GET  /api/utils/private/ping   (token in body)
//	GET  /api/utils/admin/ping     (token in body, admin only)
//
// Every /api route first checks that the database answers.
func NewHandler(deps Deps) (http.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	a := &api{Deps: deps}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/register", a.requireDatabase(http.HandlerFunc(a.register)))
	mux.Handle("POST /api/auth/login", a.requireDatabase(http.HandlerFunc(a.login)))

	pong := http.HandlerFunc(a.pong)
	mux.Handle("GET /api/utils/ping", a.requireDatabase(pong))
	mux.Handle("GET /api/utils/private/ping", a.requireDatabase(a.authenticate(pong)))
	mux.Handle("GET /api/utils/admin/ping", a.requireDatabase(a.authenticate(a.requireAdmin(pong))))

	var h http.Handler = mux
	h = securityHeaders(h)
	h = a.logRequests(h)
	h = a.recoverPanics(h)
	return h, nil
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthRequest(string, string)              {}
func (nopRecorder) RecordGateDecision(string, string)             {}
func (nopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
