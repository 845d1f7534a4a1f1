// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

// Command gateway is the entry point for the Sentra session gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) for the audit trail.
//  4. Connect to Redis for the durable session store.
//  5. Run database migrations (idempotent).
//  6. Construct the Cognito identity provider and broker.
//  7. Restore any surviving session from the durable store.
//  8. Wire HTTP handlers and the route guard.
//  9. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"

	"github.com/sentra-id/sentra/internal/api"
	"github.com/sentra-id/sentra/internal/audit"
	"github.com/sentra-id/sentra/internal/gate"
	"github.com/sentra-id/sentra/internal/identity"
	"github.com/sentra-id/sentra/internal/identity/cognito"
	"github.com/sentra-id/sentra/internal/platform/config"
	"github.com/sentra-id/sentra/internal/platform/constants"
	"github.com/sentra-id/sentra/internal/platform/migration"
	pgstore "github.com/sentra-id/sentra/internal/platform/postgres"
	redisstore "github.com/sentra-id/sentra/internal/platform/redis"
	"github.com/sentra-id/sentra/internal/session"
	"github.com/sentra-id/sentra/internal/session/store"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Sentra] gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Identity Provider ──────────────────────────────────────────────
	awsCfg, err := awsconfig.LoadDefaultConfig(startupCtx, awsconfig.WithRegion(cfg.AWSRegion))
	must(log, err, "load aws configuration")

	cognitoClient := cip.NewFromConfig(awsCfg, func(options *cip.Options) {
		if cfg.CognitoEndpoint != "" {
			options.BaseEndpoint = aws.String(cfg.CognitoEndpoint)
		}
	})
	provider, err := cognito.New(cognitoClient, cfg.CognitoClientID, cfg.CognitoClientSecret)
	must(log, err, "initialize identity provider")

	broker := identity.NewBroker(provider, log)

	// ── 7. Session Wiring ─────────────────────────────────────────────────
	auditStore := audit.NewPostgresStore(pool)
	recorder := audit.NewRecorder(auditStore, log)

	dual := store.NewDualStore(store.NewRedisDurable(rdb), log)
	scheduler := session.NewScheduler(constants.ExpiryLead)
	sessions := session.NewManager(dual, scheduler, log, recorder)

	// Rehydrate a surviving session before serving traffic.
	sessions.Restore(startupCtx)

	// ── 8. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckSessionStore: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 9. Route Guard ────────────────────────────────────────────────────
	guard := gate.New(cfg.EntryPath).
		AllowExact("/health").
		AllowExact("/ready").
		AllowPrefix("/api/v1/identity")

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Identity:  identity.NewHandler(broker, sessions, cfg.EntryPath),
		Audit:     audit.NewHandler(auditStore),
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	// Retention prune runs for the server's lifetime.
	pruner := audit.NewPruner(auditStore, log, cfg.AuditRetention)
	go pruner.Run(serverCtx, constants.AuditPruneInterval)

	server := api.NewServer(serverCtx, cfg, log, guard, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
