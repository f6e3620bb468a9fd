package kvstore

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry TTL, mirroring the semantics of
// an edge KV namespace: Get returns the raw string value and whether the key
// exists, Put replaces the value and resets its TTL. A zero TTL means the
// entry never expires.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
