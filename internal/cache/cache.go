// Package cache holds short-lived in-process state. Its one user is the
// pending store, which lets the attestation service fetch the exact payload
// being scored while an evaluation is in flight.
package cache

import "time"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Len() int
}

// PendingKey namespaces a request identifier
func PendingKey(requestID string) string {
	return "credence:pending:v1:" + requestID
}
