package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/CatalogGo/internal/config"
	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/event"
	handler "github.com/utafrali/CatalogGo/internal/handler/http"
	"github.com/utafrali/CatalogGo/internal/repository"
	mongorepo "github.com/utafrali/CatalogGo/internal/repository/mongo"
	"github.com/utafrali/CatalogGo/internal/repository/postgres"
	"github.com/utafrali/CatalogGo/internal/service"
	"github.com/utafrali/CatalogGo/migrations"
	"github.com/utafrali/CatalogGo/pkg/database"
	"github.com/utafrali/CatalogGo/pkg/health"
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
	"github.com/utafrali/CatalogGo/pkg/middleware"
	"github.com/utafrali/CatalogGo/pkg/tracing"
)

const (
	serviceName = "catalog"

	// snapshotRefreshGroup consumes category renames and rewrites the
	// category names embedded on products.
	snapshotRefreshGroup = "catalog-snapshot-refresh"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	mongoClient     *mongo.Client
	redisClient     *redis.Client
	producer        *pkgkafka.Producer
	dlq             *pkgkafka.DLQProducer
	renamedConsumer *pkgkafka.Consumer
	httpServer      *http.Server
	rateLimiter     *middleware.RateLimiter
	tracerShutdown  func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeClients()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	healthHandler := health.NewHandler()
	stores := make(map[domain.Backend]*repository.Store, len(cfg.EnabledBackends()))

	if cfg.Enabled(domain.BackendRelational) {
		store, err := a.openRelational(ctx, healthHandler)
		if err != nil {
			return nil, err
		}
		stores[domain.BackendRelational] = store
	}

	if cfg.Enabled(domain.BackendDocument) {
		store, err := a.openDocument(ctx, healthHandler)
		if err != nil {
			return nil, err
		}
		stores[domain.BackendDocument] = store
	}

	// Kafka is optional: without it events are dropped and embedded
	// category names are only refreshed by later product writes.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := database.WithRetry(ctx, "kafka", logger, a.producer.Ping); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = a.producer
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Build the per-backend dependency graph.
	backends := make(map[domain.Backend]*handler.Services, len(stores))
	refreshers := make(map[domain.Backend]event.SnapshotRefresher, len(stores))
	for backend, store := range stores {
		products := service.NewProductService(store, eventProducer, cfg.ResyncBackRefsOnUpdate, logger)
		backends[backend] = &handler.Services{
			Products:   products,
			Categories: service.NewCategoryService(store, eventProducer, logger),
			Sellers:    service.NewSellerService(store, logger),
		}
		refreshers[backend] = products
	}

	if cfg.KafkaEnabled {
		idempotency := a.idempotencyStore(ctx, healthHandler)
		consumer := event.NewConsumer(refreshers, logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.renamedConsumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  snapshotRefreshGroup,
			Topic:    event.TopicCategoryRenamed,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(idempotency, consumer.HandleCategoryRenamed, logger), a.dlq, logger)
	}

	// HTTP router.
	a.rateLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:            cfg.RateLimitRPS,
		Burst:          cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxyCIDRs,
	}, logger)
	router := handler.NewRouter(backends, healthHandler, handler.RouterConfig{
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		RateLimiter:       a.rateLimiter,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openRelational connects to PostgreSQL, applies the schema and returns the
// relational store.
func (a *App) openRelational(ctx context.Context, healthHandler *health.Handler) (*repository.Store, error) {
	cfg := a.cfg
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		a.logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewStore(pool), nil
}

// openDocument connects to MongoDB, ensures indexes and returns the document
// store.
func (a *App) openDocument(ctx context.Context, healthHandler *health.Handler) (*repository.Store, error) {
	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = a.cfg.MongoURI
	mongoCfg.Database = a.cfg.MongoDBName
	mongoCfg.MaxPoolSize = a.cfg.MongoMaxPoolSize

	gauges, err := database.NewMongoPoolGauges(prometheus.DefaultRegisterer, serviceName)
	if err != nil {
		a.logger.Warn("failed to register mongo pool metrics", slog.String("error", err.Error()))
	} else {
		mongoCfg.PoolMonitor = gauges.Monitor()
	}

	client, err := database.NewMongoClient(ctx, mongoCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	a.mongoClient = client
	a.logger.Info("connected to MongoDB", slog.String("database", mongoCfg.Database))

	db := client.Database(mongoCfg.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}

	healthHandler.RegisterCritical("mongo", database.MongoPing(client))
	return mongorepo.NewStore(db), nil
}

// idempotencyStore prefers Redis so replicas share processed event ids and
// falls back to process memory when Redis is unreachable.
func (a *App) idempotencyStore(ctx context.Context, healthHandler *health.Handler) pkgkafka.IdempotencyStore {
	ttl := time.Duration(a.cfg.IdempotencyTTLHours) * time.Hour

	client, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err != nil {
		a.logger.Warn("redis unavailable, using in-memory idempotency store",
			slog.String("error", err.Error()),
		)
		return pkgkafka.NewMemoryIdempotencyStore(ttl)
	}
	a.redisClient = client
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.RedisAddr))

	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return pkgkafka.NewRedisIdempotencyStore(client, snapshotRefreshGroup, ttl)
}

// Run starts the HTTP server and the event consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.Any("backends", a.cfg.EnabledBackends()),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.renamedConsumer != nil {
		go func() {
			if err := a.renamedConsumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("category renamed consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer, DLQ and producer
// 4. Storage clients
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.rateLimiter.Stop()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeClients()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeClients closes every client that was opened. It tolerates a
// partially initialized App.
func (a *App) closeClients() []error {
	var errs []error
	closeWith := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.renamedConsumer != nil {
		closeWith("category renamed consumer", a.renamedConsumer.Close)
	}
	if a.dlq != nil {
		closeWith("dlq producer", a.dlq.Close)
	}
	if a.producer != nil {
		closeWith("kafka producer", a.producer.Close)
	}
	if a.redisClient != nil {
		closeWith("redis", a.redisClient.Close)
	}
	if a.mongoClient != nil {
		closeWith("mongo", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.mongoClient.Disconnect(ctx)
		})
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
