package services

import (
	"context"
	"time"

	"github.com/competitor-scanner/app/models"
)

// CacheStats are the counters every cache backend reports.
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ICacheService is the contract shared by the memory, Redis, MongoDB and
// hybrid scan-result caches. Keys are fingerprints produced by the scan
// service, so entries from different scanner-set versions never collide.
type ICacheService interface {
	// Get returns the cached result for key. The bool reports whether the
	// key was present; a miss is not an error.
	Get(ctx context.Context, key string) (*models.ScanResult, bool, error)

	// Set stores a result under key, replacing any previous entry.
	Set(ctx context.Context, key string, result *models.ScanResult) error

	// Delete removes a single entry. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Clear drops every entry owned by this cache.
	Clear(ctx context.Context) error

	// GetStats reports hit/miss counters since the cache was created.
	GetStats(ctx context.Context) (*CacheStats, error)

	// Exists reports whether key is present without touching counters.
	Exists(ctx context.Context, key string) (bool, error)

	// GetTTL returns the remaining lifetime of key, 0 when the key is
	// missing or the backend does not expire entries.
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	// Close releases backend connections.
	Close() error
}
