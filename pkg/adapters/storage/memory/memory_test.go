package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGet(t *testing.T) {
	s := NewRecordStore(time.Hour, 10)
	ctx := context.Background()

	rec := &ports.PredictionRecord{RequestID: "r1", Status: "success", Version: "v1.0.0"}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "success", got.Status)

	// Returned records are copies
	got.Status = "mutated"
	again, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "success", again.Status)
}

func TestGetUnknown(t *testing.T) {
	s := NewRecordStore(0, 0)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrRecordNotFound)
}

func TestSaveRequiresRequestID(t *testing.T) {
	s := NewRecordStore(0, 0)

	assert.Error(t, s.Save(context.Background(), &ports.PredictionRecord{}))
	assert.Error(t, s.Save(context.Background(), nil))
}

func TestRecordsExpire(t *testing.T) {
	s := NewRecordStore(50*time.Millisecond, 10)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &ports.PredictionRecord{RequestID: "old"}))

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "old")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Save(ctx, &ports.PredictionRecord{RequestID: "new"}))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)
}

func TestStoreIsBounded(t *testing.T) {
	const limit = 100
	s := NewRecordStore(time.Hour, limit)
	ctx := context.Background()

	for i := 0; i < 50*limit; i++ {
		require.NoError(t, s.Save(ctx, &ports.PredictionRecord{RequestID: fmt.Sprintf("r%d", i)}))
	}

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, limit)

	_, err = s.Get(ctx, "r0")
	assert.ErrorIs(t, err, ports.ErrRecordNotFound)
	_, err = s.Get(ctx, fmt.Sprintf("r%d", 50*limit-1))
	assert.NoError(t, err)
}

// Save must not scan the store, so a full store saves as fast as an empty one
func TestSaveCostIndependentOfSize(t *testing.T) {
	ctx := context.Background()

	perSave := func(prefill int) time.Duration {
		s := NewRecordStore(time.Hour, 0)
		for i := 0; i < prefill; i++ {
			require.NoError(t, s.Save(ctx, &ports.PredictionRecord{RequestID: fmt.Sprintf("fill-%d", i)}))
		}

		const n = 2000
		start := time.Now()
		for i := 0; i < n; i++ {
			require.NoError(t, s.Save(ctx, &ports.PredictionRecord{RequestID: fmt.Sprintf("extra-%d", i)}))
		}
		return time.Since(start) / n
	}

	small := perSave(1000)
	large := perSave(50000)

	// A linear scan would make the large store about 50x slower
	assert.Less(t, large, 10*small+50*time.Microsecond)
}

func TestDelete(t *testing.T) {
	s := NewRecordStore(0, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &ports.PredictionRecord{RequestID: "r1"}))
	require.NoError(t, s.Delete(ctx, "r1"))

	_, err := s.Get(ctx, "r1")
	assert.ErrorIs(t, err, ports.ErrRecordNotFound)
}

func BenchmarkSave(b *testing.B) {
	s := NewRecordStore(time.Hour, 100000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Save(ctx, &ports.PredictionRecord{RequestID: fmt.Sprintf("r%d", i)})
	}
}
