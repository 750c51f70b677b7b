// Package storage provides prediction record store implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-process map with TTL, the default
package storage
