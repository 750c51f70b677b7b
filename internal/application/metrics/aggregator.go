// Package metrics aggregates per-request serving outcomes in memory.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Outcome is the terminal result of one inference request
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Aggregator holds process-lifetime counters. Record and Snapshot are
// serialized so Total == Successful + Failed is always observed.
type Aggregator struct {
	mu                sync.Mutex
	total             uint64
	successful        uint64
	failed            uint64
	cumulativeLatency float64
	startTime         time.Time
}

// View is a point-in-time copy of the counters plus derived values
type View struct {
	TotalRequests            uint64
	Successful               uint64
	Failed                   uint64
	CumulativeLatencySeconds float64
	AverageLatencySeconds    float64
	SuccessRatePercent       float64
	StartTime                time.Time
}

// NewAggregator creates an aggregator whose start time is now
func NewAggregator() *Aggregator {
	return NewAggregatorAt(time.Now())
}

// NewAggregatorAt creates an aggregator with a fixed start time
func NewAggregatorAt(start time.Time) *Aggregator {
	return &Aggregator{startTime: start}
}

// Record counts one completed request. Latency is accumulated only for
// successful requests.
func (a *Aggregator) Record(outcome Outcome, latencySeconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	switch outcome {
	case OutcomeSuccess:
		a.successful++
		a.cumulativeLatency += latencySeconds
	default:
		a.failed++
	}
}

// Snapshot returns the current counters with derived averages
func (a *Aggregator) Snapshot() View {
	a.mu.Lock()
	v := View{
		TotalRequests:            a.total,
		Successful:               a.successful,
		Failed:                   a.failed,
		CumulativeLatencySeconds: a.cumulativeLatency,
		StartTime:                a.startTime,
	}
	a.mu.Unlock()

	if v.Successful > 0 {
		v.AverageLatencySeconds = v.CumulativeLatencySeconds / float64(v.Successful)
	}
	if v.TotalRequests > 0 {
		rate := float64(v.Successful) / float64(v.TotalRequests) * 100
		v.SuccessRatePercent = math.Round(rate*100) / 100
	}

	return v
}
