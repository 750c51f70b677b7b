package ports

import (
	"context"
	"time"
)

// PredictionResult is the output of a single classification.
type PredictionResult struct {
	PredictedClass int       `json:"prediction"`
	Probabilities  []float64 `json:"probabilities"`
	Confidence     float64   `json:"confidence"`
}

// Classifier scores a feature vector. Implementations must be safe for
// concurrent use once constructed.
type Classifier interface {
	// Predict validates the feature vector against the expected
	// dimensionality and returns class probabilities.
	Predict(features []float64) (*PredictionResult, error)

	// NumFeatures returns the expected input dimensionality.
	NumFeatures() int

	// NumClasses returns the number of output classes.
	NumClasses() int
}

// EventType identifies a prediction event
type EventType string

const (
	EventPredictionCompleted EventType = "prediction.completed"
	EventPredictionFailed    EventType = "prediction.failed"
)

// TopicPredictions is the event bus topic for prediction events
const TopicPredictions = "predictions"

// Event is published once per completed /predict request
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RequestID string                 `json:"request_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler handles events delivered by an EventBus
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes and subscribes to events
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// PredictionRecord is the stored outcome of one /predict request
type PredictionRecord struct {
	RequestID      string            `json:"request_id"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	Status         string            `json:"status"`
	Features       []float64         `json:"features,omitempty"`
	Result         *PredictionResult `json:"result,omitempty"`
	Error          string            `json:"error,omitempty"`
	Version        string            `json:"version"`
	LatencySeconds float64           `json:"latency_seconds"`
	CreatedAt      time.Time         `json:"created_at"`
}

// RecordStore keeps prediction records for later lookup
type RecordStore interface {
	Save(ctx context.Context, record *PredictionRecord) error
	Get(ctx context.Context, requestID string) (*PredictionRecord, error)
	Delete(ctx context.Context, requestID string) error
	List(ctx context.Context) ([]string, error)
}

// MetricsCollector exports serving metrics to an external system
type MetricsCollector interface {
	ObservePrediction(status string, duration time.Duration)
	IncPredictionErrors(kind string)
	SetModelLoaded(loaded bool)
	IncEventsPublished(topic string, ok bool)
}
