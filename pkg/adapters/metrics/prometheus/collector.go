package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	predictions        *prometheus.CounterVec
	predictionErrors   *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
	modelLoaded        prometheus.Gauge
	eventsPublished    *prometheus.CounterVec
}

// NewCollector creates a collector registered with reg.
// Pass prometheus.DefaultRegisterer to expose it on the global registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlsvc_predictions_total",
				Help: "Total number of prediction requests by outcome",
			},
			[]string{"status"},
		),
		predictionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlsvc_prediction_errors_total",
				Help: "Total number of failed prediction requests by error kind",
			},
			[]string{"kind"},
		),
		predictionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mlsvc_prediction_duration_seconds",
				Help:    "Prediction request duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"status"},
		),
		modelLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mlsvc_model_loaded",
				Help: "1 if the model artifact is loaded, 0 otherwise",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlsvc_events_published_total",
				Help: "Total number of prediction events published",
			},
			[]string{"topic", "result"},
		),
	}
}

// ObservePrediction records one completed prediction request
func (c *Collector) ObservePrediction(status string, duration time.Duration) {
	c.predictions.WithLabelValues(status).Inc()
	c.predictionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncPredictionErrors increments the error counter for an error kind
func (c *Collector) IncPredictionErrors(kind string) {
	c.predictionErrors.WithLabelValues(kind).Inc()
}

// SetModelLoaded sets the model loaded gauge
func (c *Collector) SetModelLoaded(loaded bool) {
	if loaded {
		c.modelLoaded.Set(1)
		return
	}
	c.modelLoaded.Set(0)
}

// IncEventsPublished counts event publications
func (c *Collector) IncEventsPublished(topic string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.eventsPublished.WithLabelValues(topic, result).Inc()
}
