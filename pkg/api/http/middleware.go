package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader     = "X-Request-ID"
	correlationIDHeader = "X-Correlation-ID"
	requestIDKey        = "request_id"
	correlationIDKey    = "correlation_id"

	maxCorrelationIDLen = 128
)

// requestLogger emits one log line per request. It must be installed
// before gin.Recovery so panicking handlers are still logged.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Request IDs key stored records, so they are always ours. A
		// client-sent X-Request-ID is kept only as a correlation tag.
		requestID := uuid.New().String()
		correlationID := c.GetHeader(requestIDHeader)
		if len(correlationID) > maxCorrelationIDLen {
			correlationID = correlationID[:maxCorrelationIDLen]
		}
		c.Set(requestIDKey, requestID)
		c.Set(correlationIDKey, correlationID)
		c.Header(requestIDHeader, requestID)
		if correlationID != "" {
			c.Header(correlationIDHeader, correlationID)
		}

		defer func() {
			duration := time.Since(start)

			logger.Info("HTTP request",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.String("query", query),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("duration", duration),
				zap.String("client_ip", c.ClientIP()),
				zap.String("request_id", requestID),
				zap.String("correlation_id", correlationID))
		}()

		c.Next()
	}
}

// corsMiddleware allows browser clients from any origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientLimiter holds one token bucket per client IP
type clientLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
	}
}

func (l *clientLimiter) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.clients[client]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.clients[client] = lim
	}
	return lim
}

// rateLimit rejects requests over the per-client budget with 429.
// Rejected requests never reach the inference service.
func rateLimit(limiter *clientLimiter, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: ErrorDetail{
					Code:    "RATE_LIMITED",
					Message: "Too many requests",
				},
				Version: version,
			})
			return
		}

		c.Next()
	}
}
