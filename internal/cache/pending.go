package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultPendingTTL bounds how long a payload stays readable
const DefaultPendingTTL = 5 * time.Minute

// PendingEntry is the payload under evaluation for one request
type PendingEntry struct {
	RequestID  string          `json:"requestId"`
	SourceName string          `json:"sourceName"`
	Category   string          `json:"category"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PendingStore maps request ids to their payloads for a fixed TTL. Entries
// expire whether or not they were read.
type PendingStore struct {
	cache Cache
	ttl   time.Duration
}

// NewPendingStore creates a store over c
func NewPendingStore(c Cache, ttl time.Duration) *PendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingStore{cache: c, ttl: ttl}
}

// Put stores an entry
func (s *PendingStore) Put(e PendingEntry) error {
	if e.RequestID == "" {
		return fmt.Errorf("pending entry without request id")
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode pending entry: %w", err)
	}
	return s.cache.Set(PendingKey(e.RequestID), raw, s.ttl)
}

// Get returns the entry for requestID if it has not expired
func (s *PendingStore) Get(requestID string) (PendingEntry, bool) {
	raw, ok := s.cache.Get(PendingKey(requestID))
	if !ok {
		return PendingEntry{}, false
	}
	var e PendingEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return PendingEntry{}, false
	}
	return e, true
}

// Delete evicts an entry early
func (s *PendingStore) Delete(requestID string) error {
	return s.cache.Delete(PendingKey(requestID))
}

// Len reports the number of stored entries
func (s *PendingStore) Len() int {
	return s.cache.Len()
}

// TTL returns the fixed entry lifetime
func (s *PendingStore) TTL() time.Duration {
	return s.ttl
}
