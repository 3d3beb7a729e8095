package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Sagar7057/pharma-backend/internal/auth"
	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/config"
	"github.com/Sagar7057/pharma-backend/internal/event"
	handler "github.com/Sagar7057/pharma-backend/internal/handler/http"
	"github.com/Sagar7057/pharma-backend/internal/mailer"
	"github.com/Sagar7057/pharma-backend/internal/repository/postgres"
	"github.com/Sagar7057/pharma-backend/internal/service"
	"github.com/Sagar7057/pharma-backend/migrations"
	"github.com/Sagar7057/pharma-backend/pkg/database"
	"github.com/Sagar7057/pharma-backend/pkg/health"
	"github.com/Sagar7057/pharma-backend/pkg/httpclient"
	pkgkafka "github.com/Sagar7057/pharma-backend/pkg/kafka"
	"github.com/Sagar7057/pharma-backend/pkg/middleware"
	"github.com/Sagar7057/pharma-backend/pkg/tracing"
)

// App wires together all dependencies and runs the pricing backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "pharma-backend",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
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

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "pharma-backend")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis. A boot-time failure is almost always a bad address,
	// so fail fast here; runtime outages only degrade readiness.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	appCache := cache.New(redisClient)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Parse JWT expiry duration.
	jwtExpiry, err := time.ParseDuration(cfg.JWTExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT expiry %q: %w", cfg.JWTExpiry, err)
	}

	// Outbound mail goes through the webhook when one is configured;
	// otherwise quotes are logged instead of delivered.
	var quoteMailer mailer.Mailer
	if cfg.MailWebhookURL != "" {
		mailClient := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("mail-webhook"),
			logger,
		)
		quoteMailer = mailer.NewWebhookMailer(mailClient, cfg.MailWebhookURL, cfg.MailFrom, logger)
	} else {
		quoteMailer = mailer.NewLogMailer(logger)
	}
	logger.Info("mailer configured", slog.String("mailer", quoteMailer.Name()))

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, jwtExpiry)
	userRepo := postgres.NewUserRepository(pool)
	brandRepo := postgres.NewBrandRepository(pool)
	customerTypeRepo := postgres.NewCustomerTypeRepository(pool)
	pricingRuleRepo := postgres.NewPricingRuleRepository(pool)
	nppaRepo := postgres.NewNPPARepository(pool)
	quoteRepo := postgres.NewQuoteRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	eventProducer := event.NewProducer(producer, logger)
	userService := service.NewUserService(userRepo, customerTypeRepo, jwtManager, appCache, eventProducer, logger, cfg.BcryptCost)
	brandService := service.NewBrandService(brandRepo, appCache, logger)
	customerTypeService := service.NewCustomerTypeService(customerTypeRepo, appCache, logger)
	pricingService := service.NewPricingService(brandRepo, customerTypeRepo, pricingRuleRepo, nppaRepo, appCache, logger)
	quoteService := service.NewQuoteService(quoteRepo, brandRepo, userRepo, quoteMailer, appCache, eventProducer, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, appCache, logger)

	consumerHandler := event.NewConsumerHandler(quoteMailer, logger)
	// Dedup state lives in Redis so redeliveries are caught across replicas.
	eventStore := pkgkafka.NewRedisIdempotencyStore(redisClient, "events:processed", event.IdempotencyTTL)
	consumers := event.NewConsumers(cfg.KafkaBrokers, eventStore, consumerHandler, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	// HTTP router.
	router := handler.NewRouter(
		userService,
		brandService,
		customerTypeService,
		pricingService,
		quoteService,
		analyticsService,
		jwtManager,
		healthHandler,
		logger,
		corsCfg,
		cfg.PprofAllowedCIDRs,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		consumers:      consumers,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the consumers and the HTTP server, then blocks until the
// context is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, c := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("kafka consumer stopped", slog.String("error", err.Error()))
			}
		}(c)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: drain HTTP, stop
// consumers, flush spans, then close the producer, Redis, and the pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Flush pending spans after the HTTP drain so in-flight request spans
	// are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
