package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/events"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/handlers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/middleware"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/redis"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
)

// The SSE server fans session updates published on Redis out to browsers,
// so it can scale separately from the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.App.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Redis is required: the stream has nothing to read without the bus
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient, *logger)
	sseHandler := handlers.NewSSEHandler(eventBus, cfg.App.SessionID, *logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	mux.HandleFunc("GET /api/stream/session", sseHandler.StreamSession)
	mux.HandleFunc("GET /api/stream/session/{id}", sseHandler.StreamSession)

	mux.HandleFunc("GET /api/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"connected_clients": %d}`, sseHandler.GetClientCount())
	})

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(metrics)(handler)
	handler = middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.SSEPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("SSE server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("SSE server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("SSE server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}
	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing event bus")
	}

	logger.Info().Msg("SSE server stopped")
}
