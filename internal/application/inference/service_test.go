package inference

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/mlsvc/internal/application/metrics"
	eventsmemory "github.com/aescanero/mlsvc/pkg/adapters/events/memory"
	"github.com/aescanero/mlsvc/pkg/adapters/model"
	storagememory "github.com/aescanero/mlsvc/pkg/adapters/storage/memory"
	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func irisClassifier(t *testing.T) ports.Classifier {
	t.Helper()
	clf, err := model.NewClassifier(&model.Artifact{
		Format:      model.FormatLinearSoftmax,
		NumFeatures: 4,
		Classes:     []int{0, 1, 2},
		Coefficients: [][]float64{
			{-0.4236, 0.9672, -2.5172, -1.0793},
			{0.5349, -0.3216, -0.2063, -0.9442},
			{-0.1113, -0.6456, 2.7235, 2.0235},
		},
		Intercept: []float64{9.8499, 2.2374, -12.0873},
	})
	require.NoError(t, err)
	return clf
}

type funcClassifier func([]float64) (*ports.PredictionResult, error)

func (f funcClassifier) Predict(x []float64) (*ports.PredictionResult, error) { return f(x) }
func (funcClassifier) NumFeatures() int                                       { return 4 }
func (funcClassifier) NumClasses() int                                        { return 3 }

type fakeCollector struct {
	mu          sync.Mutex
	predictions map[string]int
	errors      map[string]int
	published   int
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{predictions: map[string]int{}, errors: map[string]int{}}
}

func (c *fakeCollector) ObservePrediction(status string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictions[status]++
}

func (c *fakeCollector) IncPredictionErrors(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[kind]++
}

func (c *fakeCollector) SetModelLoaded(bool) {}

func (c *fakeCollector) IncEventsPublished(string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published++
}

func newService(handle model.Handle) (*Service, *metrics.Aggregator) {
	agg := metrics.NewAggregator()
	svc := NewService(&Config{
		Handle:  handle,
		Metrics: agg,
		Logger:  zap.NewNop(),
	})
	return svc, agg
}

func TestPredictSuccess(t *testing.T) {
	svc, agg := newService(model.NewLoaded(irisClassifier(t), "v1.0.0"))

	resp, err := svc.Predict(context.Background(), Request{Features: []float64{5.1, 3.5, 1.4, 0.2}})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Prediction)
	assert.Len(t, resp.Probabilities, 3)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.True(t, resp.ModelLoaded)
	assert.GreaterOrEqual(t, resp.LatencySeconds, 0.0)

	var sum, hi float64
	for _, p := range resp.Probabilities {
		sum += p
		hi = math.Max(hi, p)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, hi, resp.Confidence)

	v := agg.Snapshot()
	assert.Equal(t, uint64(1), v.Successful)
	assert.Equal(t, uint64(0), v.Failed)
}

func TestPredictModelUnavailable(t *testing.T) {
	svc, agg := newService(model.NewUnloaded(errors.New("model artifact not found: model.json"), "v1.0.0"))

	for i := 0; i < 3; i++ {
		resp, err := svc.Predict(context.Background(), Request{Features: []float64{5.1, 3.5, 1.4, 0.2}})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ports.ErrModelUnavailable)
	}

	v := agg.Snapshot()
	assert.Equal(t, uint64(3), v.TotalRequests)
	assert.Equal(t, uint64(3), v.Failed)
	assert.Zero(t, v.AverageLatencySeconds)
}

func TestUnloadedWinsOverBadBody(t *testing.T) {
	svc, _ := newService(model.NewUnloaded(errors.New("missing"), "v1.0.0"))

	_, err := svc.Predict(context.Background(), Request{BindErr: errors.New("unexpected EOF")})
	assert.ErrorIs(t, err, ports.ErrModelUnavailable)
}

func TestPredictInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		errMsg string
	}{
		{"wrong length", Request{Features: []float64{1, 2, 3}}, "X has 3 features, but model is expecting 4"},
		{"empty", Request{Features: []float64{}}, "features must not be empty"},
		{"bad body", Request{BindErr: errors.New("cannot unmarshal string")}, "cannot unmarshal string"},
		{"non-finite", Request{Features: []float64{1, math.NaN(), 3, 4}}, "non-finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, agg := newService(model.NewLoaded(irisClassifier(t), "v1.0.0"))

			_, err := svc.Predict(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, KindInvalidInput, ErrorKind(err))
			assert.Equal(t, uint64(1), agg.Snapshot().Failed)
		})
	}
}

func TestPredictInferenceFailures(t *testing.T) {
	tests := []struct {
		name   string
		clf    funcClassifier
		errMsg string
	}{
		{
			name: "unexpected error",
			clf: func([]float64) (*ports.PredictionResult, error) {
				return nil, errors.New("matrix is singular")
			},
			errMsg: "matrix is singular",
		},
		{
			name: "panic",
			clf: func([]float64) (*ports.PredictionResult, error) {
				panic("index out of range")
			},
			errMsg: "model panicked: index out of range",
		},
		{
			name: "nil result",
			clf: func([]float64) (*ports.PredictionResult, error) {
				return nil, nil
			},
			errMsg: "model returned no result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, agg := newService(model.NewLoaded(tt.clf, "v1.0.0"))

			_, err := svc.Predict(context.Background(), Request{Features: []float64{1, 2, 3, 4}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrInferenceFailure)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, KindInferenceFailure, ErrorKind(err))

			v := agg.Snapshot()
			assert.Equal(t, uint64(1), v.TotalRequests)
			assert.Equal(t, uint64(1), v.Failed)
		})
	}
}

func TestLatencyAveragedOverSuccesses(t *testing.T) {
	svc, agg := newService(model.NewLoaded(irisClassifier(t), "v1.0.0"))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{
		base, base.Add(10 * time.Millisecond),
		base.Add(time.Second), base.Add(time.Second + 20*time.Millisecond),
		base.Add(2 * time.Second), base.Add(2*time.Second + 30*time.Millisecond),
	}
	svc.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	latencies := []float64{}
	for i := 0; i < 3; i++ {
		resp, err := svc.Predict(context.Background(), Request{Features: []float64{5.1, 3.5, 1.4, 0.2}})
		require.NoError(t, err)
		latencies = append(latencies, resp.LatencySeconds)
	}

	assert.InDeltaSlice(t, []float64{0.01, 0.02, 0.03}, latencies, 1e-9)

	v := agg.Snapshot()
	assert.Equal(t, uint64(3), v.TotalRequests)
	assert.Equal(t, 100.0, v.SuccessRatePercent)
	assert.InDelta(t, 0.02, v.AverageLatencySeconds, 1e-9)
}

func TestConcurrentPredictionsKeepInvariant(t *testing.T) {
	svc, agg := newService(model.NewLoaded(irisClassifier(t), "v1.0.0"))

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			features := []float64{5.1, 3.5, 1.4, 0.2}
			if i%4 == 0 {
				features = features[:2]
			}
			_, _ = svc.Predict(context.Background(), Request{Features: features})
		}(i)
	}
	wg.Wait()

	v := agg.Snapshot()
	assert.Equal(t, uint64(200), v.TotalRequests)
	assert.Equal(t, uint64(50), v.Failed)
	assert.Equal(t, uint64(150), v.Successful)
	assert.Equal(t, 75.0, v.SuccessRatePercent)
}

func TestSideEffects(t *testing.T) {
	agg := metrics.NewAggregator()
	store := storagememory.NewRecordStore(time.Hour, 1000)
	bus := eventsmemory.NewInMemoryEventBus()
	collector := newFakeCollector()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan ports.Event, 4)
	require.NoError(t, bus.Subscribe(ctx, ports.TopicPredictions, func(_ context.Context, ev ports.Event) error {
		events <- ev
		return nil
	}))

	svc := NewService(&Config{
		Handle:    model.NewLoaded(irisClassifier(t), "v1.0.0"),
		Metrics:   agg,
		Collector: collector,
		Store:     store,
		EventBus:  bus,
		Logger:    zap.NewNop(),
	})

	_, err := svc.Predict(ctx, Request{RequestID: "ok-1", CorrelationID: "client-7", Features: []float64{5.1, 3.5, 1.4, 0.2}})
	require.NoError(t, err)
	_, err = svc.Predict(ctx, Request{RequestID: "bad-1", Features: []float64{1}})
	require.Error(t, err)

	rec, err := store.Get(ctx, "ok-1")
	require.NoError(t, err)
	assert.Equal(t, "success", rec.Status)
	assert.Equal(t, "client-7", rec.CorrelationID)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 0, rec.Result.PredictedClass)

	rec, err = store.Get(ctx, "bad-1")
	require.NoError(t, err)
	assert.Equal(t, "failure", rec.Status)
	assert.Contains(t, rec.Error, "X has 1 features")

	byRequest := map[string]ports.Event{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			byRequest[ev.RequestID] = ev
		case <-time.After(time.Second):
			t.Fatal("prediction event not published")
		}
	}
	assert.Equal(t, ports.EventPredictionCompleted, byRequest["ok-1"].Type)
	assert.Equal(t, ports.EventPredictionFailed, byRequest["bad-1"].Type)
	assert.Equal(t, KindInvalidInput, byRequest["bad-1"].Data["kind"])

	collector.mu.Lock()
	defer collector.mu.Unlock()
	assert.Equal(t, 1, collector.predictions["success"])
	assert.Equal(t, 1, collector.predictions["failure"])
	assert.Equal(t, 1, collector.errors[KindInvalidInput])
	assert.Equal(t, 2, collector.published)
}

func TestRequestIDAssigned(t *testing.T) {
	agg := metrics.NewAggregator()
	store := storagememory.NewRecordStore(0, 0)
	svc := NewService(&Config{
		Handle:  model.NewLoaded(irisClassifier(t), "v1.0.0"),
		Metrics: agg,
		Store:   store,
		Logger:  zap.NewNop(),
	})

	_, err := svc.Predict(context.Background(), Request{Features: []float64{5.1, 3.5, 1.4, 0.2}})
	require.NoError(t, err)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Len(t, ids[0], 36)
}
