package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamsEventBus implements ports.EventBus using Redis Streams.
// Every subscriber reads the full stream (fan-out), starting from the
// last entry present when Subscribe was called.
type StreamsEventBus struct {
	client *redis.Client
	logger *zap.Logger
	maxLen int64
	block  time.Duration
}

// NewStreamsEventBus creates a new Redis Streams event bus. Streams are
// trimmed to approximately maxLen entries; zero disables trimming.
func NewStreamsEventBus(client *redis.Client, maxLen int64, logger *zap.Logger) *StreamsEventBus {
	return &StreamsEventBus{
		client: client,
		logger: logger,
		maxLen: maxLen,
		block:  time.Second,
	}
}

// Publish appends an event to the topic's stream
func (e *StreamsEventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	streamKey := getStreamKey(topic)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}

	if _, err := e.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("topic", topic),
		zap.String("stream", streamKey))

	return nil
}

// Subscribe starts delivering new stream entries to handler until ctx is done
func (e *StreamsEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	streamKey := getStreamKey(topic)

	lastID := "0-0"
	latest, err := e.client.XRevRangeN(ctx, streamKey, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read stream tail: %w", err)
	}
	if len(latest) > 0 {
		lastID = latest[0].ID
	}

	e.logger.Info("subscribed to event stream",
		zap.String("stream", streamKey),
		zap.String("topic", topic),
		zap.String("from_id", lastID))

	go e.readStream(ctx, streamKey, lastID, handler)

	return nil
}

// readStream reads events from a stream
func (e *StreamsEventBus) readStream(ctx context.Context, streamKey, lastID string, handler ports.EventHandler) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := e.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{streamKey, lastID},
			Count:   10,
			Block:   e.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			e.logger.Error("failed to read from stream",
				zap.String("stream", streamKey),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				lastID = message.ID
				e.processMessage(ctx, streamKey, message, handler)
			}
		}
	}
}

// processMessage decodes a single stream entry and calls handler
func (e *StreamsEventBus) processMessage(ctx context.Context, streamKey string, message redis.XMessage, handler ports.EventHandler) {
	data, ok := message.Values["data"].(string)
	if !ok {
		e.logger.Error("invalid message format",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID))
		return
	}

	var event ports.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		e.logger.Error("failed to unmarshal event",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	if err := handler(ctx, event); err != nil {
		e.logger.Error("handler error",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
	}
}

// Unsubscribe is a no-op; readers stop when their context is cancelled
func (e *StreamsEventBus) Unsubscribe(ctx context.Context, topic string) error {
	return nil
}

// Close releases bus resources. The Redis client is owned by the caller.
func (e *StreamsEventBus) Close() error {
	return nil
}

// getStreamKey returns the Redis stream key for a topic
func getStreamKey(topic string) string {
	return fmt.Sprintf("mlsvc:events:%s", topic)
}
