package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/bodymetrics/internal/api"
	"example.com/bodymetrics/internal/auth"
	"example.com/bodymetrics/internal/config"
	"example.com/bodymetrics/internal/domain"
	"example.com/bodymetrics/internal/eventbus"
	"example.com/bodymetrics/internal/history"
	"example.com/bodymetrics/internal/logging"
	"example.com/bodymetrics/internal/persistence/file"
	"example.com/bodymetrics/internal/persistence/postgres"
	"example.com/bodymetrics/internal/persistence/sqlite"
	httptransport "example.com/bodymetrics/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stdout).
		With().Str("service", "bodymetrics-api").Logger()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open measurement store")
	}
	defer closeBackend()

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	hist := history.Load(ctx, backend, logger)
	service := domain.NewService(hist, backend, publisher, domain.WithLogger(logger))
	handler := api.NewHandler(service, cfg.DefaultTrendDays)

	authenticator := auth.NewAuthenticator(auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), "/healthz", "/metrics")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: cfg.CORSAllowCredentials(),
	}))
	r.Use(authenticator.Handler)
	r.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(r)

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), r)

	logger.Info().
		Str("backend", cfg.StoreBackend).
		Bool("events", len(cfg.KafkaBrokers) > 0).
		Msg("bodymetrics api starting")
	if err := httptransport.Run(ctx, server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
}

// openBackend selects the history backend named by STORE_BACKEND.
func openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (history.Backend, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return file.NewStore(cfg.MeasurementsFile, logger), func() {}, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return postgres.NewRepository(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func newPublisher(cfg config.Config, logger zerolog.Logger) (domain.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info().Msg("KAFKA_BROKERS not set, measurement events are not published")
		return eventbus.Noop{}, func() {}
	}
	producer := eventbus.NewKafkaProducer(cfg.KafkaBrokers, eventbus.WithProducerLogger(logger))
	return eventbus.NewPublisher(producer, cfg.MeasurementTopic), func() {
		if err := producer.Close(); err != nil {
			logger.Warn().Err(err).Msg("kafka producer close failed")
		}
	}
}
