package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/competitor-scanner/app/models"
)

// HybridCacheService layers the in-process memory cache (L1) over Redis
// (L2). L1 absorbs hot keys on this instance; L2 is shared between
// instances and survives restarts.
type HybridCacheService struct {
	memoryCache *CacheService
	redisCache  *RedisCacheService
	logger      *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewHybridCacheService combines the two backends.
func NewHybridCacheService(memoryCache *CacheService, redisCache *RedisCacheService, logger *zap.Logger) *HybridCacheService {
	return &HybridCacheService{
		memoryCache: memoryCache,
		redisCache:  redisCache,
		logger:      logger,
	}
}

// Get checks L1 first, then Redis. A Redis hit is copied back into L1 in
// the background so the next lookup stays local.
func (hcs *HybridCacheService) Get(ctx context.Context, key string) (*models.ScanResult, bool, error) {
	result, found, err := hcs.memoryCache.Get(ctx, key)
	if err != nil {
		hcs.logger.Warn("memory cache failed, falling back to redis", zap.Error(err))
	} else if found {
		hcs.hits.Add(1)
		hcs.logger.Debug("l1 cache hit", zap.String("key", key))
		return result, true, nil
	}

	result, found, err = hcs.redisCache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		hcs.misses.Add(1)
		hcs.logger.Debug("cache miss in both layers", zap.String("key", key))
		return nil, false, nil
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := hcs.memoryCache.Set(bgCtx, key, result); err != nil {
			hcs.logger.Warn("l2 to l1 fill failed", zap.Error(err), zap.String("key", key))
		}
	}()

	hcs.hits.Add(1)
	hcs.logger.Debug("l2 cache hit", zap.String("key", key))
	return result, true, nil
}

// Set writes both layers concurrently and reports every failure.
func (hcs *HybridCacheService) Set(ctx context.Context, key string, result *models.ScanResult) error {
	errCh := make(chan error, 2)

	go func() {
		err := hcs.memoryCache.Set(ctx, key, result)
		if err != nil {
			hcs.logger.Warn("memory cache set failed", zap.Error(err))
		}
		errCh <- err
	}()

	go func() {
		err := hcs.redisCache.Set(ctx, key, result)
		if err != nil {
			hcs.logger.Warn("redis cache set failed", zap.Error(err))
		}
		errCh <- err
	}()

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cache errors: %v", errs)
	}

	return nil
}

// Delete removes the key from both layers.
func (hcs *HybridCacheService) Delete(ctx context.Context, key string) error {
	errCh := make(chan error, 2)

	go func() {
		errCh <- hcs.memoryCache.Delete(ctx, key)
	}()

	go func() {
		errCh <- hcs.redisCache.Delete(ctx, key)
	}()

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("delete errors: %v", errs)
	}

	return nil
}

// Clear drops both layers.
func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		errCh <- hcs.memoryCache.Clear(ctx)
	}()

	go func() {
		errCh <- hcs.redisCache.Clear(ctx)
	}()

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("clear errors: %v", errs)
	}

	hcs.hits.Store(0)
	hcs.misses.Store(0)

	hcs.logger.Info("hybrid cache cleared")
	return nil
}

// GetStats reports logical hits and misses seen by the hybrid layer. A
// lookup that misses L1 but hits Redis counts as one hit, so the layered
// counters are not summed. TotalItems comes from Redis, the layer every
// instance shares.
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits := hcs.hits.Load()
	misses := hcs.misses.Load()

	totalItems := int64(0)
	redisStats, err := hcs.redisCache.GetStats(ctx)
	if err != nil {
		hcs.logger.Warn("redis stats failed, falling back to memory count", zap.Error(err))
		memoryStats, memErr := hcs.memoryCache.GetStats(ctx)
		if memErr != nil {
			return nil, fmt.Errorf("both cache layers failed: %v, %v", err, memErr)
		}
		totalItems = memoryStats.TotalItems
	} else {
		totalItems = redisStats.TotalItems
	}

	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: totalItems,
	}, nil
}

// Exists checks L1 first, then Redis.
func (hcs *HybridCacheService) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := hcs.memoryCache.Exists(ctx, key)
	if err != nil {
		hcs.logger.Warn("memory exists check failed, falling back to redis", zap.Error(err))
	} else if exists {
		return true, nil
	}

	return hcs.redisCache.Exists(ctx, key)
}

// GetTTL prefers the Redis lifetime since that layer outlives this
// process; L1 answers only when the key never reached Redis.
func (hcs *HybridCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := hcs.redisCache.GetTTL(ctx, key)
	if err != nil || ttl > 0 {
		return ttl, err
	}
	return hcs.memoryCache.GetTTL(ctx, key)
}

// Close shuts down both layers.
func (hcs *HybridCacheService) Close() error {
	errCh := make(chan error, 2)

	go func() {
		errCh <- hcs.memoryCache.Close()
	}()

	go func() {
		errCh <- hcs.redisCache.Close()
	}()

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}
