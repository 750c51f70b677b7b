// Package events provides event bus implementations for prediction events.
//
// Implementations:
//   - redis: Redis Streams with consumer groups
//   - memory: In-process fan-out, the default when Redis is not configured
package events
