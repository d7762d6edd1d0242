package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	docapp "github.com/cloudfly/dian-service/internal/application/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/auth"
	"github.com/cloudfly/dian-service/internal/infrastructure/cache"
	"github.com/cloudfly/dian-service/internal/infrastructure/codec"
	"github.com/cloudfly/dian-service/internal/infrastructure/config"
	"github.com/cloudfly/dian-service/internal/infrastructure/dian"
	"github.com/cloudfly/dian-service/internal/infrastructure/logger"
	"github.com/cloudfly/dian-service/internal/infrastructure/messaging"
	"github.com/cloudfly/dian-service/internal/infrastructure/persistence"
	"github.com/cloudfly/dian-service/internal/infrastructure/settings"
	"github.com/cloudfly/dian-service/internal/infrastructure/signer"
	"github.com/cloudfly/dian-service/internal/infrastructure/storage"
	"github.com/cloudfly/dian-service/internal/infrastructure/telemetry"
	"github.com/cloudfly/dian-service/internal/infrastructure/worker"
	"github.com/cloudfly/dian-service/internal/interfaces/http/handler"
	"github.com/cloudfly/dian-service/internal/interfaces/http/middleware"
	"github.com/cloudfly/dian-service/internal/interfaces/http/router"
)

//	@title			DIAN Electronic Document Service API
//	@version		1.0
//	@description	Query API for fiscal documents issued to the DIAN

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config.toml (default: search ., ./config, /app)")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}

	// The log bridge needs a logger of its own before the main one exists
	bootLog, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, bootLog)
	if err != nil {
		bootLog.Error("Failed to initialize OTLP log provider", zap.Error(err))
		return err
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, telemetry.NewZapOTELCore(telemetryCfg.ServiceName, logProvider, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting DIAN document service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	var closers []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				log.Warn("Shutdown step failed", zap.Error(err))
			}
		}
	}()
	closers = append(closers, logProvider.Shutdown)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Error("Failed to initialize tracer provider", zap.Error(err))
		return err
	}
	closers = append(closers, tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Error("Failed to initialize meter provider", zap.Error(err))
		return err
	}
	closers = append(closers, meterProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Error("Failed to initialize profiler", zap.Error(err))
		return err
	}
	closers = append(closers, func(context.Context) error { return profiler.Stop() })
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	documentMetrics, err := telemetry.NewDocumentMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Error("Failed to register document metrics", zap.Error(err))
		return err
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	closers = append(closers, func(context.Context) error { return db.Close() })
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Error("Failed to register database tracing", zap.Error(err))
		return err
	}
	log.Info("Database connected successfully")

	// Configuration gateway with operation-mode cache
	settingsClient, err := settings.NewClient(settings.Config{
		BaseURL: cfg.Settings.BaseURL,
		Token:   cfg.Settings.Token,
		Timeout: cfg.Settings.Timeout,
	}, settings.WithLogger(log))
	if err != nil {
		log.Error("Invalid settings service configuration", zap.Error(err))
		return err
	}
	modeStore, err := newModeStore(cfg, log)
	if err != nil {
		log.Error("Failed to create operation-mode cache", zap.Error(err))
		return err
	}
	closers = append(closers, func(context.Context) error { return modeStore.Close() })
	gateway := settings.NewCachingGateway(settingsClient, modeStore, cfg.Settings.CacheTTL, log)

	// Signing and submission
	docSigner := signer.New(log, signer.WithCredentialDir(cfg.Signer.CredentialDir))
	if err := docSigner.Initialize(); err != nil {
		log.Error("Failed to initialize signer", zap.Error(err))
		return err
	}
	authority, err := dian.NewClient(dian.Config{
		TestURL:       cfg.Authority.TestURL,
		ProductionURL: cfg.Authority.ProductionURL,
		Timeout:       cfg.Authority.Timeout,
	}, dian.WithLogger(log))
	if err != nil {
		log.Error("Invalid authority configuration", zap.Error(err))
		return err
	}

	archive, err := newArchive(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize artifact archive", zap.Error(err))
		return err
	}

	// Application service
	repo := persistence.NewGormElectronicDocumentRepository(db.DB)
	deps := docapp.Dependencies{
		Repository: repo,
		Gateway:    gateway,
		Signer:     docSigner,
		Authority:  authority,
		Archive:    archive,
		Metrics:    documentMetrics,
		Logger:     log,
	}
	generator := codec.NewGenerator(codec.WithLogger(log))
	registry, err := docapp.NewRegistry(
		docapp.NewInvoiceProcessor(deps, generator),
		docapp.NewPayrollProcessor(deps, generator),
	)
	if err != nil {
		log.Error("Failed to build processor registry", zap.Error(err))
		return err
	}
	service := docapp.NewService(repo, registry, documentMetrics, log)

	// Worker pool
	pool := worker.NewPool(worker.Config{
		Workers:     cfg.Worker.Workers,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}, log)
	// tasks outlive the signal and are drained by Stop
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		log.Error("Failed to start worker pool", zap.Error(err))
		return err
	}

	// Event bus
	nc, err := messaging.Connect(cfg.NATS.URL, cfg.App.Name, log)
	if err != nil {
		log.Error("Failed to connect to NATS", zap.Error(err))
		return err
	}
	closers = append(closers, func(context.Context) error { return nc.Drain() })
	js, err := jetstream.New(nc)
	if err != nil {
		log.Error("Failed to create JetStream context", zap.Error(err))
		return err
	}
	consumer := messaging.NewConsumer(js, messaging.ConsumerConfig{
		Stream:     cfg.NATS.Stream,
		Subject:    cfg.NATS.Subject,
		Durable:    cfg.NATS.Durable,
		AckWait:    cfg.NATS.AckWait,
		FetchBatch: cfg.NATS.FetchBatch,
	}, service, pool, log)

	// HTTP
	srv, err := newHTTPServer(cfg, log, db, pool, service)
	if err != nil {
		log.Error("Failed to build HTTP server", zap.Error(err))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server forced to shutdown", zap.Error(err))
		}
		// in-flight documents settle their messages before the pool stops
		if err := consumer.Wait(shutdownCtx); err != nil {
			log.Warn("Gave up waiting for in-flight documents", zap.Error(err))
		}
		return pool.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
		return err
	}
	log.Info("Service exited gracefully")
	return nil
}

func newModeStore(cfg *config.Config, log *zap.Logger) (cache.ModeStore, error) {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, using in-memory operation-mode cache")
		return cache.NewInMemoryModeCache(), nil
	}
	factory := cache.NewModeStoreFactory(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cache.WithLogger(log), cache.WithInMemoryFallback(cfg.App.Env != "production"))
	return factory.CreateStore()
}

func newArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (docapp.ArtifactArchive, error) {
	if !cfg.Storage.Enabled {
		return storage.NopArchive{}, nil
	}
	archive, err := storage.NewS3Archive(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Archiving artifacts to object storage", zap.String("bucket", archive.Bucket()))
	return archive, nil
}

func newHTTPServer(
	cfg *config.Config,
	log *zap.Logger,
	db *persistence.Database,
	pool *worker.Pool,
	queries handler.DocumentQueries,
) (*http.Server, error) {
	routerCfg := router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		},
	}
	if cfg.JWT.Enabled {
		routerCfg.Auth = auth.NewJWTService(cfg.JWT)
	}

	system := handler.NewSystemHandler(cfg.App.Name, version, db, pool)
	r, err := router.New(routerCfg, system, log)
	if err != nil {
		return nil, err
	}
	engine := r.Register(handler.NewDocumentHandler(queries)).Setup()

	return &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}, nil
}
