// Mirador server: a natural-language BI gateway that routes Spanish
// questions through the insight pipeline and serves the HTTP/SSE API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
	"github.com/tienda-lubbi/mirador/pkg/api"
	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/cleanup"
	"github.com/tienda-lubbi/mirador/pkg/composer"
	"github.com/tienda-lubbi/mirador/pkg/config"
	"github.com/tienda-lubbi/mirador/pkg/database"
	"github.com/tienda-lubbi/mirador/pkg/executor"
	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/memory"
	"github.com/tienda-lubbi/mirador/pkg/pipeline"
	"github.com/tienda-lubbi/mirador/pkg/planner"
	"github.com/tienda-lubbi/mirador/pkg/router"
	"github.com/tienda-lubbi/mirador/pkg/version"
)

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using existing environment")
	}
	logger := setupLogger()

	logger.Info("starting mirador", "version", version.API, "build", version.GitCommit)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Fail fast on a broken allowlist: a template that trips its own guard
	// must never reach the executor.
	if err := allowlist.GuardAll(); err != nil {
		logger.Error("allowlist validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Analytics database. In demo mode the executor serves fixtures and no
	// connection is opened.
	var db *sql.DB
	if !cfg.DemoMode {
		db, err = database.Open(cfg.DBURL, database.DefaultConfig())
		if err != nil {
			logger.Error("failed to open analytics database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("error closing analytics database", "error", err)
			}
		}()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("analytics database unreachable, queries will fail until it recovers", "error", err)
		} else {
			logger.Info("connected to analytics database")
		}
		cancel()
	} else {
		logger.Info("demo mode enabled, serving fixture data")
	}

	// Conversation memory.
	store, err := memory.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open conversation store", "backend", cfg.MemoryBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing conversation store", "error", err)
		}
	}()
	logger.Info("conversation store ready", "backend", cfg.MemoryBackend)

	// LLM client. Missing credentials degrade to heuristics-only operation
	// instead of refusing to start.
	llmClient, err := llm.New(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			logger.Warn("llm provider not configured, running with heuristics only", "provider", cfg.LLMProvider)
			llmClient = nil
		} else {
			logger.Error("failed to initialize llm client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("llm client initialized", "provider", llmClient.Provider())
	}

	caches := cache.NewSet()
	exec := executor.New(db, cfg.DBTimeout, cfg.DemoMode, logger)

	pipe := pipeline.New(pipeline.Deps{
		Router:    router.New(llmClient, cfg.UseLLMRouter, logger),
		Clarifier: router.NewClarificationAgent(llmClient, logger),
		Planner:   planner.New(llmClient, cfg.UseLLMPlanner, logger),
		Executor:  exec,
		Composer:  composer.New(llmClient, cfg.PresentationUseLLM, cfg.DemoMode, logger),
		Caches:    caches,
		Memory:    store,
		Logger:    logger,
	})

	server := api.NewServer(cfg, pipe, db, caches, store, logger)

	// Background retention keeps the conversation store inside its TTL.
	retention := cleanup.NewService(store, cfg.MemoryTTL, cleanup.DefaultInterval, logger)
	retention.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server error triggered shutdown", "error", err)
	}

	retention.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
