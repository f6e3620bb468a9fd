package service

import (
	"context"
	"encoding/json"
	"time"

	"deye-status/internal/domain"
	"deye-status/internal/kvstore"
	"deye-status/pkg/logger"
)

// snapshotKey is versioned: bumping it invalidates whatever an older
// deployment left in the store.
const snapshotKey = "battery_data_v3"

// SnapshotCache stores the last computed snapshot set in the KV store.
//
// Freshness is decided from the embedded timestamp at read time, not from
// the storage TTL: the entry is deliberately kept far longer than the
// freshness window so an expired-but-present snapshot remains available
// for the stale-fallback path.
type SnapshotCache struct {
	store      kvstore.Store
	window     time.Duration
	storageTTL time.Duration
}

// NewSnapshotCache creates a snapshot cache with the given freshness window.
func NewSnapshotCache(store kvstore.Store, window time.Duration) *SnapshotCache {
	return &SnapshotCache{
		store:      store,
		window:     window,
		storageTTL: 7 * 24 * time.Hour,
	}
}

// ReadFresh returns the stored snapshot set only if it is younger than the
// freshness window. Storage errors count as a miss.
func (c *SnapshotCache) ReadFresh(ctx context.Context) (*domain.SnapshotSet, bool) {
	set, ok := c.ReadAny(ctx)
	if !ok {
		return nil, false
	}
	age := time.Since(time.UnixMilli(set.Timestamp))
	if age >= c.window {
		return nil, false
	}
	return set, true
}

// ReadAny returns the stored snapshot set regardless of age. Used by the
// stale-fallback path.
func (c *SnapshotCache) ReadAny(ctx context.Context) (*domain.SnapshotSet, bool) {
	raw, found, err := c.store.Get(ctx, snapshotKey)
	if err != nil {
		logger.Errorf("%v", &domain.StorageError{Op: "read snapshot", Err: err})
		return nil, false
	}
	if !found {
		return nil, false
	}

	var set domain.SnapshotSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, false
	}
	if set.Timestamp == 0 {
		return nil, false
	}
	return &set, true
}

// Write replaces the stored snapshot set. Best-effort: a write failure is
// logged and swallowed, the request that computed the data still succeeds.
func (c *SnapshotCache) Write(ctx context.Context, batteries []domain.ChannelSnapshot) {
	set := domain.SnapshotSet{
		Batteries: batteries,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, _ := json.Marshal(set)
	if err := c.store.Put(ctx, snapshotKey, string(raw), c.storageTTL); err != nil {
		logger.Errorf("%v", &domain.StorageError{Op: "write snapshot", Err: err})
	}
}
