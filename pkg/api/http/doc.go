// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Predictions (POST /predict) and usage guidance (GET /predict)
//   - Health checks and service information
//   - Serving metrics as JSON and in Prometheus format
//   - Prediction record lookup and a live WebSocket event feed
package http
