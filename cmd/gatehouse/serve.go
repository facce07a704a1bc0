// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/web"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const (
	serviceName     = "gatehouse"
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. On startup the database schema is migrated
(unless disabled), the configured administrator account is ensured, and the
metrics/health server is started when metrics.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	fs := cmd.Flags()
	fs.String("http-addr", ":3000", "API listen address")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.Bool("auto-migrate", true, "apply pending migrations on startup")
	fs.Duration("token-ttl", 24*time.Hour, "access token lifetime")
	fs.String("admin-email", "admin@app.com", "bootstrap administrator email")
	addDatabaseFlags(fs)
	addLogFlags(fs)

	return cmd
}

func addDatabaseFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection URL (or DATABASE_URL)")
	fs.Duration("connect-timeout", 30*time.Second, "how long to wait for the database on startup")
}

func addLogFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// setupLogging validates cfg and installs the default logger.
func setupLogging(cfg *config.Config, deps *Deps) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, oops.With("operation", "validate configuration").Wrap(err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  deps.LogWriter,
	}), nil
}

// runServeWithDeps starts the API server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	logger, err := setupLogging(cfg, deps)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting gatehouse",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)
	if cfg.UsesDefaultSecret() {
		logger.WarnContext(ctx, "token.secret is the built-in default; set GATEHOUSE_TOKEN_SECRET before exposing this server")
	}

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(ctx, logger, deps, cfg.Database.URL); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.InfoContext(ctx, "connected to database")

	svc, err := newCore(cfg, deps, db.Accounts(), logger)
	if err != nil {
		return err
	}

	outcome, err := svc.bootstrap.EnsureAdmin(ctx, adminSeed(cfg))
	if err != nil {
		return oops.With("operation", "ensure admin account").With("email", cfg.Admin.Email).Wrap(err)
	}
	logger.InfoContext(ctx, "admin account ready", "email", cfg.Admin.Email, "outcome", outcome.String())

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	handler, err := web.NewHandler(web.Deps{
		Registration:   svc.registration,
		Authentication: svc.authentication,
		Tokens:         svc.tokens,
		Gate:           svc.gate,
		Database:       db,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return oops.With("operation", "build http handler").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := deps.HTTPServerFactory(cfg.HTTP.Addr, handler)
	httpErrCh, err := httpServer.Start()
	if err != nil {
		return oops.With("operation", "start http server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrCh, "http")
	logger.InfoContext(ctx, "http server started", "addr", httpServer.Addr())

	var obsServer Server
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, registry, db.Ping)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopServer(logger, httpServer, "http")
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.InfoContext(ctx, "observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Gatehouse started")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopServer(logger, httpServer, "http")
	if obsServer != nil {
		stopServer(logger, obsServer, "observability")
	}
	logger.Info("shutdown complete")
	return nil
}

// core holds the wired authentication services.
type core struct {
	tokens         *auth.TokenService
	registration   *auth.RegistrationFlow
	authentication *auth.AuthenticationFlow
	gate           *auth.AccessGate
	bootstrap      *auth.BootstrapAdmin
}

func newCore(cfg *config.Config, deps *Deps, accounts auth.AccountDirectory, logger *slog.Logger) (*core, error) {
	tokens, err := auth.NewTokenService(cfg.Token.Secret, cfg.Token.TTL)
	if err != nil {
		return nil, oops.With("operation", "create token service").Wrap(err)
	}
	registration, err := auth.NewRegistrationFlow(accounts, deps.Hasher)
	if err != nil {
		return nil, oops.With("operation", "create registration flow").Wrap(err)
	}
	authentication, err := auth.NewAuthenticationFlow(accounts, deps.Hasher)
	if err != nil {
		return nil, oops.With("operation", "create authentication flow").Wrap(err)
	}
	gate, err := auth.NewAccessGate(tokens, accounts)
	if err != nil {
		return nil, oops.With("operation", "create access gate").Wrap(err)
	}
	bootstrap, err := auth.NewBootstrapAdmin(registration, accounts, logger)
	if err != nil {
		return nil, oops.With("operation", "create admin bootstrap").Wrap(err)
	}
	return &core{
		tokens:         tokens,
		registration:   registration,
		authentication: authentication,
		gate:           gate,
		bootstrap:      bootstrap,
	}, nil
}

func adminSeed(cfg *config.Config) auth.AdminSeed {
	return auth.AdminSeed{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}
}

// autoMigrate applies pending migrations. A close failure is logged, not returned.
func autoMigrate(ctx context.Context, logger *slog.Logger, deps *Deps, url string) error {
	migrator, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(ctx, logger, "failed to close migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.InfoContext(ctx, "database schema up to date")
	return nil
}

func stopServer(logger *slog.Logger, s Server, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a serve failure.
// It returns once errCh yields or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
