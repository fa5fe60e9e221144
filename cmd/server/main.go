package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"conelog/internal/auth"
	"conelog/internal/config"
	httpserver "conelog/internal/http"
	"conelog/internal/localtime"
	"conelog/internal/metrics"
	"conelog/internal/normalize"
	"conelog/internal/store"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	stor := store.New(pool)
	if err := stor.Migrate(ctx); err != nil {
		return err
	}

	deriver := localtime.NewDeriver(loc)
	normalizer := normalize.New(stor.Events, deriver, logger)

	// One-time startup pass: correct any rows whose local fields were
	// derived in a different timezone or by an older writer.
	updated, err := normalizer.Run(ctx, "")
	if err != nil {
		return err
	}
	metrics.AddNormalizedEvents(updated)
	logger.Info("startup normalization complete", "component", "app", "updated", updated)

	authService, err := auth.NewService(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.Audience, stor.AccessTokens, logger)
	if err != nil {
		return err
	}

	handler := httpserver.NewHandler(stor.Events, authService, deriver, normalizer, logger)
	router := httpserver.NewRouter(cfg, stor, authService, handler)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "component", "app", "addr", cfg.ListenAddr, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "component", "app")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "component", "app", "error", err)
	}
	return nil
}
