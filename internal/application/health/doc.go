// Package health derives service health from the model handle.
//
// The Reporter answers on demand; the Monitor periodically logs the status
// and pushes it to listeners such as the gRPC health server and the
// Prometheus model gauge.
package health
