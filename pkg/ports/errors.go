package ports

import "errors"

// Error kinds surfaced by the inference path. Adapters wrap them with
// fmt.Errorf("%w: ...") and callers match them with errors.Is.
var (
	// ErrModelUnavailable means no model was loaded at startup.
	ErrModelUnavailable = errors.New("model not loaded")

	// ErrInvalidInput means the request shape or values were rejected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInferenceFailure means the model failed while computing a result.
	ErrInferenceFailure = errors.New("inference failed")

	// ErrRecordNotFound is returned by RecordStore when a request ID is unknown.
	ErrRecordNotFound = errors.New("prediction record not found")
)
