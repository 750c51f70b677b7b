package health

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/mlsvc/pkg/adapters/model"
	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubClassifier struct{}

func (stubClassifier) Predict([]float64) (*ports.PredictionResult, error) { return nil, nil }
func (stubClassifier) NumFeatures() int                                   { return 1 }
func (stubClassifier) NumClasses() int                                    { return 2 }

func TestStatusLoaded(t *testing.T) {
	r := NewReporter(model.NewLoaded(stubClassifier{}, "v1.0.0"))
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	r.now = func() time.Time { return fixed }

	s := r.Status()
	assert.Equal(t, StateOK, s.State)
	assert.True(t, s.ModelLoaded)
	assert.Equal(t, "v1.0.0", s.Version)
	assert.Equal(t, fixed.UTC(), s.Timestamp)
}

func TestStatusDegraded(t *testing.T) {
	r := NewReporter(model.NewUnloaded(errors.New("model artifact not found"), "v9"))

	s := r.Status()
	assert.Equal(t, StateDegraded, s.State)
	assert.False(t, s.ModelLoaded)
	assert.Equal(t, "v9", s.Version)
}

func TestMonitorNotifiesListeners(t *testing.T) {
	r := NewReporter(model.NewUnloaded(errors.New("missing"), "v1"))
	core, logs := observer.New(zap.WarnLevel)

	var mu sync.Mutex
	var seen []Status
	m := NewMonitor(r, 10*time.Millisecond, zap.New(core), func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	m.Start()
	m.Start()

	// Start publishes synchronously before the first tick
	mu.Lock()
	require.NotEmpty(t, seen)
	assert.Equal(t, StateDegraded, seen[0].State)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()

	mu.Lock()
	n := len(seen)
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, n, len(seen))
	mu.Unlock()

	assert.GreaterOrEqual(t, logs.FilterMessage("service is degraded: model not loaded").Len(), 3)
}
