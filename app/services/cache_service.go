package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/competitor-scanner/app/models"
)

// CacheService is the in-memory backend: a size-bounded LRU whose entries
// expire after the configured TTL. A ttl of 0 disables expiry and a
// maxEntries of 0 removes the size bound.
type CacheService struct {
	entries *expirable.LRU[string, *models.ScanResult]
	ttl     time.Duration

	// setAt mirrors the LRU contents so GetTTL can report remaining
	// lifetimes; the eviction callback keeps it in sync.
	mu    sync.Mutex
	setAt map[string]time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheService builds the memory cache.
func NewCacheService(maxEntries int, ttl time.Duration) *CacheService {
	cs := &CacheService{
		ttl:   ttl,
		setAt: make(map[string]time.Time),
	}
	cs.entries = expirable.NewLRU[string, *models.ScanResult](maxEntries, cs.onEvict, ttl)
	return cs
}

// onEvict runs under the LRU's lock, so it must never call back into
// cs.entries.
func (cs *CacheService) onEvict(key string, _ *models.ScanResult) {
	cs.mu.Lock()
	delete(cs.setAt, key)
	cs.mu.Unlock()
}

// Get returns the cached result for key.
func (cs *CacheService) Get(ctx context.Context, key string) (*models.ScanResult, bool, error) {
	if result, ok := cs.entries.Get(key); ok {
		cs.hits.Add(1)
		return result, true, nil
	}
	cs.misses.Add(1)
	return nil, false, nil
}

// Set stores a result under key.
func (cs *CacheService) Set(ctx context.Context, key string, result *models.ScanResult) error {
	cs.mu.Lock()
	cs.setAt[key] = time.Now()
	cs.mu.Unlock()
	cs.entries.Add(key, result)
	return nil
}

// Delete removes a single entry.
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.entries.Remove(key)
	return nil
}

// Clear drops every entry.
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.entries.Purge()
	cs.mu.Lock()
	cs.setAt = make(map[string]time.Time)
	cs.mu.Unlock()
	return nil
}

// GetStats reports hit/miss counters since creation.
func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits := cs.hits.Load()
	misses := cs.misses.Load()
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(cs.entries.Len()),
	}, nil
}

// Exists reports key presence without promoting the entry or counting a
// hit.
func (cs *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	return cs.entries.Contains(key), nil
}

// GetTTL returns the remaining lifetime of key.
func (cs *CacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	if !cs.entries.Contains(key) {
		return 0, nil
	}
	if cs.ttl == 0 {
		return 0, nil
	}
	cs.mu.Lock()
	setAt, ok := cs.setAt[key]
	cs.mu.Unlock()
	if !ok {
		return 0, nil
	}
	remaining := cs.ttl - time.Since(setAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Close is a no-op for the in-memory backend.
func (cs *CacheService) Close() error {
	return nil
}

// hitRate is shared by every backend's GetStats.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
