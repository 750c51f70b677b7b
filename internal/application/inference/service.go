package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/mlsvc/internal/application/metrics"
	"github.com/aescanero/mlsvc/pkg/adapters/model"
	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error kind labels used in metrics and records
const (
	KindModelUnavailable = "model_unavailable"
	KindInvalidInput     = "invalid_input"
	KindInferenceFailure = "inference_failure"
)

const sideEffectTimeout = 2 * time.Second

// Request is a decoded /predict call
type Request struct {
	// RequestID keys the stored record and must be generated server side
	RequestID string
	// CorrelationID is an optional caller-supplied tag, stored but never a key
	CorrelationID string
	Features      []float64

	// BindErr is set when the request body could not be decoded
	BindErr error
}

// Response is the successful /predict body
type Response struct {
	Prediction     int       `json:"prediction"`
	Probabilities  []float64 `json:"probabilities"`
	Confidence     float64   `json:"confidence"`
	Version        string    `json:"version"`
	ModelLoaded    bool      `json:"model_loaded"`
	LatencySeconds float64   `json:"latency_seconds"`
}

// Config holds service dependencies. Collector, Store and EventBus are
// optional.
type Config struct {
	Handle    model.Handle
	Metrics   *metrics.Aggregator
	Collector ports.MetricsCollector
	Store     ports.RecordStore
	EventBus  ports.EventBus
	Logger    *zap.Logger
}

// Service runs prediction requests against the model handle
type Service struct {
	handle    model.Handle
	metrics   *metrics.Aggregator
	collector ports.MetricsCollector
	store     ports.RecordStore
	eventBus  ports.EventBus
	validator *Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new inference service
func NewService(cfg *Config) *Service {
	return &Service{
		handle:    cfg.Handle,
		metrics:   cfg.Metrics,
		collector: cfg.Collector,
		store:     cfg.Store,
		eventBus:  cfg.EventBus,
		validator: NewValidator(),
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Version returns the model version served
func (s *Service) Version() string {
	return s.handle.Version()
}

// ModelLoaded reports whether predictions can be served
func (s *Service) ModelLoaded() bool {
	return s.handle.IsLoaded()
}

// Predict runs one request to a terminal outcome. The returned error wraps
// one of ports.ErrModelUnavailable, ports.ErrInvalidInput or
// ports.ErrInferenceFailure.
func (s *Service) Predict(ctx context.Context, req Request) (*Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	start := s.now()
	result, err := s.run(req)
	latency := s.now().Sub(start)

	var resp *Response
	if err == nil {
		resp = &Response{
			Prediction:     result.PredictedClass,
			Probabilities:  result.Probabilities,
			Confidence:     result.Confidence,
			Version:        s.handle.Version(),
			ModelLoaded:    true,
			LatencySeconds: latency.Seconds(),
		}
	}

	s.complete(ctx, req, result, err, latency)

	return resp, err
}

// run evaluates the request against the handle
func (s *Service) run(req Request) (*ports.PredictionResult, error) {
	switch h := s.handle.(type) {
	case model.Unloaded:
		return nil, ports.ErrModelUnavailable
	case model.Loaded:
		if req.BindErr != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrInvalidInput, req.BindErr)
		}
		if err := s.validator.Validate(req.Features); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrInvalidInput, err)
		}
		return classify(h.Model, req.Features)
	default:
		return nil, fmt.Errorf("%w: unexpected model handle %T", ports.ErrModelUnavailable, h)
	}
}

// classify calls the model and normalizes unknown errors and panics to
// ErrInferenceFailure
func classify(clf ports.Classifier, features []float64) (result *ports.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: model panicked: %v", ports.ErrInferenceFailure, r)
		}
	}()

	result, err = clf.Predict(features)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidInput) || errors.Is(err, ports.ErrInferenceFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrInferenceFailure, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: model returned no result", ports.ErrInferenceFailure)
	}

	return result, nil
}

// complete records the outcome exactly once, then performs best-effort
// side effects
func (s *Service) complete(ctx context.Context, req Request, result *ports.PredictionResult, err error, latency time.Duration) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.Record(outcome, latency.Seconds())

	if s.collector != nil {
		s.collector.ObservePrediction(outcome.String(), latency)
		if err != nil {
			s.collector.IncPredictionErrors(ErrorKind(err))
		}
	}

	if err != nil {
		s.logger.Debug("prediction failed",
			zap.String("request_id", req.RequestID),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err))
	}

	if s.store == nil && s.eventBus == nil {
		return
	}

	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	record := &ports.PredictionRecord{
		RequestID:      req.RequestID,
		CorrelationID:  req.CorrelationID,
		Status:         outcome.String(),
		Features:       req.Features,
		Result:         result,
		Version:        s.handle.Version(),
		LatencySeconds: latency.Seconds(),
		CreatedAt:      s.now().UTC(),
	}
	if err != nil {
		record.Error = err.Error()
	}

	if s.store != nil {
		if serr := s.store.Save(sideCtx, record); serr != nil {
			s.logger.Warn("failed to save prediction record",
				zap.String("request_id", req.RequestID),
				zap.Error(serr))
		}
	}

	if s.eventBus != nil {
		s.publish(sideCtx, record, err)
	}
}

func (s *Service) publish(ctx context.Context, record *ports.PredictionRecord, predErr error) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventPredictionCompleted,
		RequestID: record.RequestID,
		Timestamp: record.CreatedAt,
		Data: map[string]interface{}{
			"version":         record.Version,
			"latency_seconds": record.LatencySeconds,
		},
	}
	if predErr != nil {
		event.Type = ports.EventPredictionFailed
		event.Data["error"] = record.Error
		event.Data["kind"] = ErrorKind(predErr)
	} else {
		event.Data["prediction"] = record.Result.PredictedClass
		event.Data["confidence"] = record.Result.Confidence
	}

	err := s.eventBus.Publish(ctx, ports.TopicPredictions, event)
	if s.collector != nil {
		s.collector.IncEventsPublished(ports.TopicPredictions, err == nil)
	}
	if err != nil {
		s.logger.Warn("failed to publish prediction event",
			zap.String("request_id", record.RequestID),
			zap.Error(err))
	}
}

// ErrorKind returns the metrics label for an inference error
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ports.ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ports.ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInferenceFailure
	}
}
