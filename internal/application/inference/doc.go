// Package inference implements the prediction request lifecycle.
//
// Each request ends in exactly one terminal outcome. The service:
//   - Rejects requests with ErrModelUnavailable when no model is loaded
//   - Validates the feature vector and runs the classifier
//   - Records the outcome in the metrics aggregator exactly once
//   - Saves a prediction record and publishes a prediction event
//
// Error kinds are ports sentinels so callers map them to status codes
// with errors.Is.
package inference
