package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "mlsvc:prediction:"

// RecordStore implements ports.RecordStore using Redis
type RecordStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRecordStore creates a new Redis record store
func NewRecordStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists a record with the configured TTL
func (s *RecordStore) Save(ctx context.Context, record *ports.PredictionRecord) error {
	if record == nil || record.RequestID == "" {
		return fmt.Errorf("record must have a request ID")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.client.Set(ctx, getRecordKey(record.RequestID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	s.logger.Debug("prediction record saved",
		zap.String("request_id", record.RequestID),
		zap.String("status", record.Status))

	return nil
}

// Get retrieves a record by request ID
func (s *RecordStore) Get(ctx context.Context, requestID string) (*ports.PredictionRecord, error) {
	data, err := s.client.Get(ctx, getRecordKey(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ports.ErrRecordNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var rec ports.PredictionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

// Delete removes a record
func (s *RecordStore) Delete(ctx context.Context, requestID string) error {
	if err := s.client.Del(ctx, getRecordKey(requestID)).Err(); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// List returns the request IDs of all stored records
func (s *RecordStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	var ids []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		for _, key := range batch {
			ids = append(ids, strings.TrimPrefix(key, keyPrefix))
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return ids, nil
}

// getRecordKey returns the Redis key for a prediction record
func getRecordKey(requestID string) string {
	return keyPrefix + requestID
}
