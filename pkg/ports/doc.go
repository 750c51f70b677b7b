// Package ports defines the interfaces and shared types that connect the
// application layer to its adapters.
//
// Adapters (model, events, storage, metrics) implement these interfaces so
// the inference service never depends on a concrete backend.
package ports
