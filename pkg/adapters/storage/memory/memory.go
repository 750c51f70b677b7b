package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RecordStore implements ports.RecordStore using a bounded in-memory LRU.
// Records expire after the TTL; once maxRecords is reached the least
// recently used record is evicted. Every operation is O(1) in the number
// of stored records.
type RecordStore struct {
	records *expirable.LRU[string, ports.PredictionRecord]
}

// NewRecordStore creates a new in-memory record store. A zero ttl keeps
// records until they are evicted; a zero maxRecords removes the bound.
func NewRecordStore(ttl time.Duration, maxRecords int) *RecordStore {
	return &RecordStore{
		records: expirable.NewLRU[string, ports.PredictionRecord](maxRecords, nil, ttl),
	}
}

// Save stores a copy of the record
func (s *RecordStore) Save(ctx context.Context, record *ports.PredictionRecord) error {
	if record == nil || record.RequestID == "" {
		return fmt.Errorf("record must have a request ID")
	}

	s.records.Add(record.RequestID, *record)
	return nil
}

// Get returns the record for a request ID
func (s *RecordStore) Get(ctx context.Context, requestID string) (*ports.PredictionRecord, error) {
	rec, ok := s.records.Get(requestID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrRecordNotFound, requestID)
	}

	return &rec, nil
}

// Delete removes a record
func (s *RecordStore) Delete(ctx context.Context, requestID string) error {
	s.records.Remove(requestID)
	return nil
}

// List returns the request IDs of all live records, oldest first
func (s *RecordStore) List(ctx context.Context) ([]string, error) {
	return s.records.Keys(), nil
}
