package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logx "github.com/glenroe/tenant-intake/pkg/logger"

	"github.com/glenroe/tenant-intake/internal/config"
	"github.com/glenroe/tenant-intake/internal/engine"
	"github.com/glenroe/tenant-intake/internal/gateway"
	"github.com/glenroe/tenant-intake/internal/handlers"
	"github.com/glenroe/tenant-intake/internal/handoff"
	"github.com/glenroe/tenant-intake/internal/observability/metrics"
	"github.com/glenroe/tenant-intake/internal/session"
	"github.com/glenroe/tenant-intake/internal/transport"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		logx.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load config")
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Env()})
	logx.Info().
		Str("service", cfg.ServiceName).
		Str("nats_url", cfg.NATS.URL).
		Str("http_addr", cfg.HTTPAddr).
		Msg("starting tenant intake service")

	redisClient, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	logx.Info().Msg("Redis connected")

	sessionStore := session.NewRedisStore(redisClient, cfg.SessionTTL)
	sessionManager := session.NewManager(sessionStore)
	prefillStore := handoff.NewRedisStore(redisClient, cfg.PrefillTTL)

	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry)

	chatHandler := handlers.NewChatHandler(engine.New(), sessionManager, prefillStore, chatMetrics, cfg.ContactEmail)

	natsTransport, err := transport.NewNATSTransport(cfg, chatHandler)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialize NATS transport")
	}
	defer natsTransport.Close()

	if err := natsTransport.Start(); err != nil {
		logx.Fatal().Err(err).Msg("failed to start NATS transport")
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: gateway.NewRouter(gateway.NewHandler(chatHandler), registry),
	}
	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	logx.Info().Msg("tenant intake service is running")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logx.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Warn().Err(err).Msg("error shutting down HTTP server")
	}

	if err := natsTransport.Close(); err != nil {
		logx.Warn().Err(err).Msg("error closing NATS transport")
	}

	logx.Info().Int("active_buffers", sessionManager.ActiveBufferCount()).Msg("tenant intake service stopped")
}
