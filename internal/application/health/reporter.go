package health

import (
	"time"

	"github.com/aescanero/mlsvc/pkg/adapters/model"
)

// State is the coarse service state
type State string

const (
	StateOK       State = "ok"
	StateDegraded State = "degraded"
)

// Status is a derived health snapshot
type Status struct {
	State       State     `json:"status"`
	ModelLoaded bool      `json:"model_loaded"`
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
}

// Reporter derives Status from the model handle. It never consults metrics.
type Reporter struct {
	handle model.Handle
	now    func() time.Time
}

// NewReporter creates a reporter for a handle
func NewReporter(handle model.Handle) *Reporter {
	return &Reporter{handle: handle, now: time.Now}
}

// Status returns the current health status
func (r *Reporter) Status() Status {
	state := StateDegraded
	if r.handle.IsLoaded() {
		state = StateOK
	}

	return Status{
		State:       state,
		ModelLoaded: r.handle.IsLoaded(),
		Version:     r.handle.Version(),
		Timestamp:   r.now().UTC(),
	}
}
