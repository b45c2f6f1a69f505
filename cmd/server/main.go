package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/application/allocation"
	"github.com/omnisync/backend/internal/application/batch"
	"github.com/omnisync/backend/internal/application/fulfillment"
	appintegration "github.com/omnisync/backend/internal/application/integration"
	appinventory "github.com/omnisync/backend/internal/application/inventory"
	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/infrastructure/cache"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/infrastructure/ecommerce"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/omnisync/backend/internal/infrastructure/scheduler"
	"github.com/omnisync/backend/internal/infrastructure/storage"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"github.com/omnisync/backend/internal/interfaces/http/handler"
	"github.com/omnisync/backend/internal/interfaces/http/middleware"
	"github.com/omnisync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting omnisync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if lp.IsEnabled() {
		level, _ := logger.ParseLevel(cfg.Log.Level)
		log = telemetry.NewBridgedLogger(log.Core(), telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: lp,
			Level:          level,
		}), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
		DisableGCRuns:     cfg.Profiling.DisableGCRuns,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tp.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithGormLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.App.Env == "development"
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThreshold,
	}, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}
	log.Info("Database connected successfully")

	var metrics *telemetry.ReconcileMetrics
	if mp.IsEnabled() {
		metrics, err = telemetry.NewReconcileMetrics(telemetry.ReconcileMetricsConfig{
			Meter:         mp.Meter("omnisync"),
			Logger:        log,
			StockProvider: telemetry.NewGormStockMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to create reconciliation metrics", zap.Error(err))
		}
		metrics.StartPeriodicCollection(ctx)
		defer metrics.Stop()
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	deductionRepo := persistence.NewGormDeductionRepository(db.DB)
	mappingRepo := persistence.NewGormOptionMappingRepository(db.DB)
	workflowRepo := persistence.NewGormWorkflowRepository(db.DB)
	allocationLogRepo := persistence.NewGormAllocationLogRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Channels, locks and the import archive
	channels, err := ecommerce.NewRegistryFromConfig(cfg.Channels, log)
	if err != nil {
		log.Fatal("Failed to configure channel adapters", zap.Error(err))
	}
	log.Info("Channel adapters configured", zap.Int("channels", len(channels.Channels())))

	locker, err := cache.NewKeyLockerFactory(cfg.Lock, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateLocker()
	if err != nil {
		log.Fatal("Failed to create invoice locker", zap.Error(err))
	}
	defer func() {
		_ = locker.Close()
	}()

	archive, err := storage.NewArchive(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create import archive", zap.Error(err))
	}
	if s3, ok := archive.(*storage.S3Archive); ok {
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare import archive bucket", zap.Error(err), zap.String("bucket", s3.Bucket()))
		}
	}

	// Services
	carriers := carrier.Default()
	opts := batch.Options{Concurrency: cfg.Worker.Concurrency, ItemTimeout: cfg.Worker.ItemTimeout}

	orderSvc := apporder.NewService(orderRepo, carriers, log)
	orderSvc.SetMetrics(metrics)
	dispatcher := fulfillment.NewDispatcher(orderRepo, carriers, channels, opts, log)
	dispatcher.SetMetrics(metrics)
	deductionEngine := appinventory.NewDeductionEngine(orderRepo, warehouseRepo, stockRepo, deductionRepo, txScope, opts, log)
	deductionEngine.SetMetrics(metrics)
	saga := fulfillment.NewInvoiceSaga(locker, deductionEngine, dispatcher, opts, log)
	saga.SetMetrics(metrics)
	importer := fulfillment.NewImporter(orderSvc, carriers, saga, archive, log)
	stockSvc := appinventory.NewStockService(warehouseRepo, stockRepo, deductionRepo, txScope, log)
	mappingSvc := appintegration.NewOptionMappingService(mappingRepo, log)
	workflowSvc := allocation.NewService(workflowRepo, allocationLogRepo, mappingRepo, stockRepo, channels, opts, log)
	workflowSvc.SetMetrics(metrics)

	// Background jobs
	jobs := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Enabled:           cfg.Scheduler.Enabled,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		QueueSize:         cfg.Scheduler.QueueSize,
		JobTimeout:        cfg.Scheduler.JobTimeout,
	}, workflowSvc, log)
	cron := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
		CheckInterval: cfg.Scheduler.TickInterval,
	}, jobs, workflowSvc, log)
	orderSync := scheduler.NewOrderSyncScheduler(scheduler.OrderSyncConfig{
		Interval: cfg.Scheduler.OrderSyncInterval,
		Lookback: cfg.Scheduler.OrderSyncLookback,
	}, channels, orderSvc, log)

	if cfg.Scheduler.Enabled {
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start allocation scheduler", zap.Error(err))
		}
		if err := cron.Start(ctx); err != nil {
			log.Fatal("Failed to start allocation trigger", zap.Error(err))
		}
	}
	if err := orderSync.Start(ctx); err != nil {
		log.Fatal("Failed to start order sync", zap.Error(err))
	}

	// HTTP
	if err := middleware.SetupValidator(allocation.RegisterValidations); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.AllowedOrigins
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.Profiling(profilingCfg),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: mp,
			Enabled:       mp.IsEnabled(),
			Logger:        log,
		}),
		middleware.CORSWithConfig(corsCfg),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
		go sweepVisitors(ctx, limiter)
		engine.Use(middleware.RateLimit(limiter))
	}
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	checks := map[string]handler.Pinger{"database": db}
	if p, ok := locker.(handler.Pinger); ok {
		checks["redis"] = p
	}
	systemHandler := handler.NewSystemHandler(version, checks)

	handlers := handler.Handlers{
		Orders:    handler.NewOrderHandler(orderSvc, channels),
		Invoices:  handler.NewInvoiceHandler(saga, dispatcher, importer, carriers),
		Inventory: handler.NewInventoryHandler(deductionEngine, stockSvc),
		Workflows: handler.NewWorkflowHandler(workflowSvc),
		Mappings:  handler.NewMappingHandler(mappingSvc),
		System:    systemHandler,
	}
	router.NewRouter(engine).Register(handlers.DomainGroups()...).Setup()

	// Health check outside /api/v1 for load balancers
	engine.GET("/health", systemHandler.Health)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := orderSync.Stop(shutdownCtx); err != nil {
		log.Warn("Order sync did not stop cleanly", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := cron.Stop(shutdownCtx); err != nil {
			log.Warn("Allocation trigger did not stop cleanly", zap.Error(err))
		}
		if err := jobs.Stop(shutdownCtx); err != nil {
			log.Warn("Allocation scheduler did not stop cleanly", zap.Error(err))
		}
	}
	stop()

	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracing shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Log export shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// sweepVisitors drops idle rate limiter entries until ctx ends
func sweepVisitors(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}
