package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/mlsvc/internal/application/health"
	"github.com/aescanero/mlsvc/internal/application/inference"
	"github.com/aescanero/mlsvc/internal/application/metrics"
	"github.com/aescanero/mlsvc/internal/config"
	eventsmemory "github.com/aescanero/mlsvc/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/mlsvc/pkg/adapters/events/redis"
	"github.com/aescanero/mlsvc/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/mlsvc/pkg/adapters/model"
	storagememory "github.com/aescanero/mlsvc/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/mlsvc/pkg/adapters/storage/redis"
	"github.com/aescanero/mlsvc/pkg/api/grpc"
	"github.com/aescanero/mlsvc/pkg/api/http"
	"github.com/aescanero/mlsvc/pkg/api/websocket"
	"github.com/aescanero/mlsvc/pkg/ports"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting ML service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("model_version", cfg.Model.Version))

	// Metrics start time is the process start
	aggregator := metrics.NewAggregator()
	collector := prometheus.NewCollector(promclient.DefaultRegisterer)

	// Load the model exactly once; failure only degrades health
	handle := model.Load(cfg.Model.Path, cfg.Model.Version, logger)
	collector.SetModelLoaded(handle.IsLoaded())

	// Initialize Redis client when a backend needs it
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	var eventBus ports.EventBus
	switch cfg.EventsBackend {
	case config.BackendRedis:
		eventBus = eventsredis.NewStreamsEventBus(redisClient, cfg.Redis.StreamMaxLen, logger)
	default:
		eventBus = eventsmemory.NewInMemoryEventBus()
	}

	var recordStore ports.RecordStore
	switch cfg.StorageBackend {
	case config.BackendRedis:
		recordStore = storageredis.NewRecordStore(redisClient, cfg.Model.RecordTTL, logger)
	default:
		recordStore = storagememory.NewRecordStore(cfg.Model.RecordTTL, cfg.Model.RecordMax)
	}

	// Initialize application components
	inferenceSvc := inference.NewService(&inference.Config{
		Handle:    handle,
		Metrics:   aggregator,
		Collector: collector,
		Store:     recordStore,
		EventBus:  eventBus,
		Logger:    logger,
	})

	reporter := health.NewReporter(handle)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Addr:           cfg.GetHTTPAddr(),
		Inference:      inferenceSvc,
		Health:         reporter,
		Metrics:        aggregator,
		Store:          recordStore,
		Gatherer:       promclient.DefaultGatherer,
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Addr:   cfg.GetGRPCAddr(),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	monitor := health.NewMonitor(reporter, cfg.HealthCheckInterval, logger,
		grpcServer.UpdateHealth,
		func(s health.Status) { collector.SetModelLoaded(s.ModelLoaded) },
	)
	monitor.Start()

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("ML service started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.String("grpc_addr", cfg.GetGRPCAddr()),
		zap.Bool("model_loaded", handle.IsLoaded()),
		zap.String("events_backend", cfg.EventsBackend),
		zap.String("storage_backend", cfg.StorageBackend))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	monitor.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("ML service shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
