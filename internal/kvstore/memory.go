package kvstore

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value      string
	expiration int64
}

// Memory is an in-process Store with TTL support. It backs tests and
// KV-less development runs.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem)}
}

// Get retrieves a value, treating expired entries as absent.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, found := m.items[key]
	if !found {
		return "", false, nil
	}
	if item.expiration > 0 && time.Now().UnixNano() > item.expiration {
		return "", false, nil
	}
	return item.value, true, nil
}

// Put stores a value with the given TTL. ttl <= 0 means no expiry.
func (m *Memory) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}
	m.items[key] = memoryItem{value: value, expiration: expiration}
	return nil
}

// Delete removes a key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
