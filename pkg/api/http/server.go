package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/mlsvc/internal/application/health"
	"github.com/aescanero/mlsvc/internal/application/inference"
	"github.com/aescanero/mlsvc/internal/application/metrics"
	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	inference *inference.Service
	health    *health.Reporter
	metrics   *metrics.Aggregator
	store     ports.RecordStore
	logger    *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr      string // listen address, e.g. ":8000"
	Inference *inference.Service
	Health    *health.Reporter
	Metrics   *metrics.Aggregator
	Store     ports.RecordStore   // optional
	Gatherer  prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	Logger    *zap.Logger

	// Per-client limit for POST /predict; zero disables it
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestLogger(cfg.Logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		router:    router,
		inference: cfg.Inference,
		health:    cfg.Health,
		metrics:   cfg.Metrics,
		store:     cfg.Store,
		logger:    cfg.Logger,
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	var limiter *clientLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.setupRoutes(gatherer, limiter)

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer, limiter *clientLimiter) {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", s.handleMetrics)
	s.router.GET("/metrics/prometheus", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Predictions
	predict := []gin.HandlerFunc{s.handlePredict}
	if limiter != nil {
		predict = append([]gin.HandlerFunc{rateLimit(limiter, s.inference.Version())}, predict...)
	}
	s.router.POST("/predict", predict...)
	s.router.GET("/predict", s.handlePredictGuide)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/predictions/:id", s.handleGetPrediction)
	}
}

// SetupWebSocket adds the prediction event stream to the server
func (s *Server) SetupWebSocket(handler interface {
	HandlePredictionStream(*gin.Context)
}) {
	s.router.GET("/ws/predictions", handler.HandlePredictionStream)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
