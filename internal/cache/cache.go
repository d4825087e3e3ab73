package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// EmbeddingKey generates a cache key for a query embedding. The model
// name is part of the key so switching embedding models never reuses
// vectors from a different space.
func EmbeddingKey(embeddingModel, text string) string {
	hash := sha256.Sum256([]byte(embeddingModel + "\x00" + text))
	return "covenant:emb:v1:" + hex.EncodeToString(hash[:])
}

// OutcomeKey generates the idempotency cache key for an inbound message.
// Intake may redeliver (webhook retries, polling overlap); re-running the
// pipeline under the same key must return the recorded outcome.
func OutcomeKey(messageID string) string {
	hash := sha256.Sum256([]byte(messageID))
	return "covenant:outcome:v1:" + hex.EncodeToString(hash[:])
}
