package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nusaledger/nusa_ledger/internal/config"
	"github.com/nusaledger/nusa_ledger/internal/infra"
	"github.com/nusaledger/nusa_ledger/internal/logging"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
	"github.com/nusaledger/nusa_ledger/internal/server"
	"github.com/nusaledger/nusa_ledger/internal/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	// Dev mode runs without Postgres or Redis on in-memory stores; outside
	// dev, config.Load already rejected missing URLs.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("no DATABASE_URL, using in-memory stores")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("no REDIS_URL, idempotency and fact streaming disabled")
	}

	srv, err := server.New(cfg, db, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}
	wiring := srv.Wiring()

	// Seed the access-control table: the admin gets GOVERNANCE, the
	// operator principal gets OPERATOR so purchases and settlements can
	// move funds on behalf of accounts.
	if err := wiring.Roles.Bootstrap(ctx, cfg.AdminIdentity); err != nil {
		logger.Error("bootstrap governance", "error", err)
		os.Exit(1)
	}
	operatorGrant := rbac.Grant{Role: rbac.RoleOperator, Identity: cfg.OperatorIdentity}
	if err := wiring.Roles.Grant(ctx, cfg.AdminIdentity, operatorGrant); err != nil {
		logger.Error("grant operator role", "error", err)
		os.Exit(1)
	}

	if cfg.IsDev() {
		// The in-memory key store starts empty, so mint the admin's key
		// here. The credential is only ever logged in dev.
		credential, err := wiring.Keyring.Issue(ctx, cfg.AdminIdentity)
		if err != nil {
			logger.Error("issue admin key", "error", err)
			os.Exit(1)
		}
		logger.Info("issued dev admin api key",
			"identity", cfg.AdminIdentity, "api_key", credential)
	}

	var sweeper *settlement.Sweeper
	if cfg.SettlementTTL > 0 {
		sweeper = settlement.NewSweeper(wiring.Settlements, cfg.SettlementTTL, 0, logger)
		go sweeper.Run()
		logger.Info("settlement expiry sweeper started", "ttl", cfg.SettlementTTL)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
