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

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/database"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/events"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/providers/places"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/search"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/state"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/handlers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/routes"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/application/services"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/postgres"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/redis"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/typesense"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Result store and session bus: Redis when available, in-process otherwise
	var (
		resultStore providers.ResultStore
		eventBus    providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-process stores")
		} else {
			defer redisClient.Close()
			resultStore = cache.NewRedisResultStore(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
			eventBus = events.NewRedisEventBus(redisClient, *logger)
		}
	}
	if resultStore == nil {
		memoryStore, err := cache.NewMemoryResultStore(cfg.Places.MemoryStoreSize)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create memory result store")
		}
		resultStore = memoryStore
		eventBus = events.NewMemoryEventBus(*logger)
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing event bus")
		}
	}()

	resultCache := cache.NewResultCache(resultStore, metrics)
	states := state.NewSessionProviders(eventBus, cfg.App.SessionID, *logger)

	// History and telemetry log: Postgres when enabled
	var (
		historyRepo repositories.SearchHistoryRepository = database.NewMemorySearchHistoryRepository()
		eventLog    repositories.TelemetryLogRepository
		recorder    *services.TelemetryRecorder
	)
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			logger.Warn().Err(err).Msg("PostgreSQL unavailable, history kept in memory")
		} else {
			defer pgClient.Close()

			historyAdapter := database.NewSearchHistoryAdapter(pgClient)
			telemetryAdapter := database.NewTelemetryLogAdapter(pgClient)
			if err := historyAdapter.EnsureSchema(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to create history schema")
			}
			if err := telemetryAdapter.EnsureSchema(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to create telemetry schema")
			}
			historyRepo = historyAdapter
			eventLog = telemetryAdapter
			recorder = services.NewTelemetryRecorder(telemetryAdapter, 1024, *logger)
			defer recorder.Close()
		}
	}

	var selectionIndex repositories.SelectionIndex
	if cfg.Typesense.Enabled {
		typesenseClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("Typesense unavailable, history search filters recent entries")
		} else if err := typesenseClient.InitSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to init Typesense schema")
		} else {
			selectionIndex = search.NewSelectionIndexAdapter(typesenseClient)
		}
	}

	var placesProvider providers.PlacesProvider
	switch cfg.Places.Provider {
	case "google":
		if cfg.Places.APIKey == "" {
			logger.Warn().Msg("PLACES_API_KEY is not set; using mock places provider")
			placesProvider = places.NewMockPlacesProvider()
		} else {
			placesProvider = places.NewGooglePlacesProvider(places.GoogleOptions{
				APIKey:  cfg.Places.APIKey,
				Country: cfg.Places.Country,
			}, *logger)
		}
	default:
		placesProvider = places.NewMockPlacesProvider()
	}

	telemetrySinks := []providers.TelemetrySink{services.LoggingTelemetrySink(*logger)}
	alertSinks := []providers.AlertSink{services.LoggingAlertSink(*logger)}
	if recorder != nil {
		telemetrySinks = append(telemetrySinks, recorder.TelemetrySink())
		alertSinks = append(alertSinks, recorder.AlertSink())
	}

	orchestrator, err := services.DefaultContainer().Initialize(services.AddressSearchDeps{
		Cache:       resultCache,
		States:      states,
		OnTelemetry: services.FanOutTelemetry(telemetrySinks...),
		OnAlert:     services.FanOutAlerts(alertSinks...),
		Logger:      observability.ComponentLogger("address_search", cfg.Orchestrator.EnableLogging),
		Metrics:     metrics,
	}, cfg.Orchestrator)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize address search service")
	}

	lookupService := services.NewAddressLookupService(orchestrator, placesProvider, resultCache, cfg.Places.MaxResults, *logger)
	historyService := services.NewSearchHistoryService(orchestrator, resultCache, historyRepo, selectionIndex, cfg.App.SessionID, *logger)

	router := routes.NewRouter(
		handlers.NewAddressHandler(orchestrator, lookupService),
		handlers.NewHistoryHandler(historyService),
		handlers.NewTelemetryHandler(orchestrator, eventLog),
		handlers.NewSSEHandler(eventBus, cfg.App.SessionID, *logger),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// the session stream holds responses open
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("API server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}
	if recorder != nil && recorder.Dropped() > 0 {
		logger.Warn().Int64("dropped", recorder.Dropped()).Msg("telemetry items dropped while the log was saturated")
	}

	logger.Info().Msg("API server stopped")
}
