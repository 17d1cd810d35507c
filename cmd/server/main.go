// Command server runs the analysis HTTP service: the synchronous
// /api/v1/analyze endpoint and the asynchronous batch pipeline described
// in SPEC_FULL.md.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hashdev89/smart-summary-insight-service/pkg/analysis"
	"github.com/hashdev89/smart-summary-insight-service/pkg/api"
	"github.com/hashdev89/smart-summary-insight-service/pkg/batch"
	"github.com/hashdev89/smart-summary-insight-service/pkg/cache"
	"github.com/hashdev89/smart-summary-insight-service/pkg/config"
	"github.com/hashdev89/smart-summary-insight-service/pkg/llmclient"
	"github.com/hashdev89/smart-summary-insight-service/pkg/ratelimiter"
	"github.com/hashdev89/smart-summary-insight-service/pkg/store"
	"github.com/hashdev89/smart-summary-insight-service/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, continuing with process environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting "+version.AppName, "version", version.Full(), "backend", cfg.BatchPersistenceBackend)

	jobStore, err := store.New(cfg)
	if err != nil {
		slog.Error("failed to initialize job store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := jobStore.Close(); err != nil {
			slog.Error("error closing job store", "error", err)
		}
	}()

	resultCache := cache.New(cache.DefaultCapacity, cfg.CacheTTL(), cfg.EnableCache)
	limiter := ratelimiter.New(cfg.ClaudeRequestsPerMinute)
	invoker := llmclient.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.MaxTokens, cfg.Temperature)

	facade := analysis.New(resultCache, limiter, invoker, cfg.ClaudeModel)
	dispatcher := batch.New(facade, jobStore, cfg.BatchMaxConcurrentLLMCalls, cfg.BatchRecordRetryCount)

	server := api.NewServer(cfg, facade, dispatcher, jobStore)

	serverErrs := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.Addr())
		if err := server.Start(cfg.Addr()); err != nil {
			serverErrs <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("error during graceful shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
