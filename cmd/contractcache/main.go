package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"contractcache/internal/cache"
	"contractcache/internal/config"
	"contractcache/internal/metrics"
	"contractcache/internal/proxy"
	"contractcache/internal/server"
	"contractcache/internal/upstream"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "optional path to config file, environment overrides it")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Str("addr", cfg.Addr()).
		Str("chainId", cfg.ChainID).
		Str("cache", cfg.Cache.Backend).
		Int("contracts", len(cfg.ContractAddresses)).
		Bool("openMode", cfg.IsOpenMode()).
		Msg("starting contractcache")

	metrics.Enable(cfg.MetricsEnabled)
	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder()
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := cache.New(startCtx, cfg.Cache, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cache store")
	}

	client, err := upstream.NewClientFromConfig(cfg, logger)
	if err != nil {
		closeQuietly(store)
		logger.Fatal().Err(err).Msg("failed to create upstream client")
	}

	orchestrator := proxy.NewOrchestratorFromConfig(cfg, store, client, recorder, logger)
	srv := server.New(cfg, orchestrator, store, client, recorder, logger)

	if err := srv.Start(); err != nil {
		closeQuietly(client)
		closeQuietly(store)
		logger.Fatal().Err(err).Msg("failed to start server")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
}

// setupLogger configures the zerolog logger
func setupLogger(level, format string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var output io.Writer = os.Stdout
	if format != "json" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
