package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/mlsvc/internal/application/inference"
	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPredictBodyBytes leaves room for MaxFeatures numbers in any JSON spelling
const maxPredictBodyBytes = inference.MaxFeatures*32 + 1024

// examplePayload is shown by GET /predict
var examplePayload = PredictRequest{Features: []float64{5.1, 3.5, 1.4, 0.2}}

// PredictRequest represents a prediction request body
type PredictRequest struct {
	Features []float64 `json:"features" binding:"required"`
}

// MetricsResponse represents the JSON metrics report
type MetricsResponse struct {
	Version               string  `json:"version"`
	ModelLoaded           bool    `json:"model_loaded"`
	TotalPredictions      uint64  `json:"total_predictions"`
	SuccessfulPredictions uint64  `json:"successful_predictions"`
	FailedPredictions     uint64  `json:"failed_predictions"`
	SuccessRatePercent    float64 `json:"success_rate_percent"`
	AverageLatencySeconds float64 `json:"average_latency_seconds"`
	UptimeSince           string  `json:"uptime_since"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Version string      `json:"version,omitempty"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleRoot describes the service
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "ML Service API",
		"version":      s.inference.Version(),
		"model_loaded": s.inference.ModelLoaded(),
		"endpoints": gin.H{
			"health":      "/health",
			"predict":     "/predict (POST)",
			"metrics":     "/metrics",
			"prometheus":  "/metrics/prometheus",
			"predictions": "/api/v1/predictions/:id",
			"stream":      "/ws/predictions",
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.health.Status())
}

// handleMetrics reports aggregate serving metrics
func (s *Server) handleMetrics(c *gin.Context) {
	v := s.metrics.Snapshot()

	c.JSON(http.StatusOK, MetricsResponse{
		Version:               s.inference.Version(),
		ModelLoaded:           s.inference.ModelLoaded(),
		TotalPredictions:      v.TotalRequests,
		SuccessfulPredictions: v.Successful,
		FailedPredictions:     v.Failed,
		SuccessRatePercent:    v.SuccessRatePercent,
		AverageLatencySeconds: v.AverageLatencySeconds,
		UptimeSince:           v.StartTime.UTC().Format(time.RFC3339),
	})
}

// handlePredict runs a prediction
func (s *Server) handlePredict(c *gin.Context) {
	req := inference.Request{
		RequestID:     c.GetString(requestIDKey),
		CorrelationID: c.GetString(correlationIDKey),
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPredictBodyBytes)

	var body PredictRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		req.BindErr = err
	} else {
		req.Features = body.Features
	}

	resp, err := s.inference.Predict(c.Request.Context(), req)
	if err != nil {
		status, code, message := errorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("prediction failed",
				zap.String("request_id", req.RequestID),
				zap.Error(err))
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: message,
			},
			Version: s.inference.Version(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handlePredictGuide explains how to call /predict
func (s *Server) handlePredictGuide(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"error":   "Please use POST method",
		"message": `Send POST request with JSON body: {"features": [5.1, 3.5, 1.4, 0.2]}`,
		"example": `curl -X POST http://localhost:8000/predict -H 'Content-Type: application/json' -d '{"features": [5.1, 3.5, 1.4, 0.2]}'`,
		"payload": examplePayload,
		"version": s.inference.Version(),
	})
}

// handleGetPrediction returns a stored prediction record
func (s *Server) handleGetPrediction(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_NOT_AVAILABLE",
				Message: "Prediction store is not configured",
			},
		})
		return
	}

	requestID := c.Param("id")

	record, err := s.store.Get(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "Prediction not found",
				},
			})
			return
		}

		s.logger.Error("failed to get prediction record", zap.String("request_id", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_ERROR",
				Message: "Failed to retrieve prediction",
				Details: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// errorStatus maps inference error kinds to HTTP responses
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, ports.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "MODEL_NOT_LOADED", "Model not loaded"
	case errors.Is(err, ports.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	default:
		return http.StatusInternalServerError, "INFERENCE_FAILED", err.Error()
	}
}
