package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/models"
	"github.com/competitor-scanner/helpers/utils"
)

// scanCacheEntry is the persistent envelope around a cached scan result.
// The original cache key is kept so WarmUp can rebuild L1 mappings.
type scanCacheEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Fingerprint  string             `bson:"fingerprint"`
	Key          string             `bson:"cache_key"`
	Result       models.ScanResult  `bson:"result"`
	CreatedAt    time.Time          `bson:"created_at"`
	LastAccessed time.Time          `bson:"last_accessed"`
	AccessCount  int64              `bson:"access_count"`
}

// MongoCacheService is the persistent backend: MongoDB storage fronted by
// an in-memory LRU so repeated texts never pay a round trip.
type MongoCacheService struct {
	db         *mongo.Database
	collection *mongo.Collection
	l1Cache    *lru.Cache[string, *models.ScanResult]
	logger     *zap.Logger

	l1Hits    atomic.Int64
	mongoHits atomic.Int64
	misses    atomic.Int64
}

// NewMongoCacheService builds the cache over db. Index creation failures
// are logged and tolerated; the cache still works, just slower.
func NewMongoCacheService(db *mongo.Database, l1Size int, logger *zap.Logger) (*MongoCacheService, error) {
	l1Cache, err := lru.New[string, *models.ScanResult](l1Size)
	if err != nil {
		return nil, fmt.Errorf("create l1 cache: %w", err)
	}

	collection := db.Collection("scan_cache")

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "fingerprint", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{bson.E{Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{bson.E{Key: "last_accessed", Value: 1}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("create scan_cache indexes failed", zap.Error(err))
	}

	return &MongoCacheService{
		db:         db,
		collection: collection,
		l1Cache:    l1Cache,
		logger:     logger,
	}, nil
}

// Get checks L1 first, then MongoDB. A Mongo hit is copied into L1 and
// its access stats are bumped in the background.
func (mcs *MongoCacheService) Get(ctx context.Context, key string) (*models.ScanResult, bool, error) {
	if result, found := mcs.l1Cache.Get(key); found {
		mcs.l1Hits.Add(1)
		mcs.logger.Debug("l1 cache hit", zap.String("key", key))
		return result, true, nil
	}

	fingerprint := utils.Fingerprint(key)

	var entry scanCacheEntry
	err := mcs.collection.FindOne(ctx, bson.M{"fingerprint": fingerprint}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			mcs.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query scan cache: %w", err)
	}

	mcs.mongoHits.Add(1)

	go mcs.updateAccessStats(entry.ID)

	result := entry.Result
	mcs.l1Cache.Add(key, &result)

	mcs.logger.Debug("mongo cache hit",
		zap.String("key", key),
		zap.String("fingerprint", fingerprint))

	return &result, true, nil
}

// Set writes to both layers. MongoDB gets an upsert keyed by fingerprint
// so re-scanning the same text never duplicates documents.
func (mcs *MongoCacheService) Set(ctx context.Context, key string, result *models.ScanResult) error {
	mcs.l1Cache.Add(key, result)

	fingerprint := utils.Fingerprint(key)

	entry := scanCacheEntry{
		Fingerprint:  fingerprint,
		Key:          key,
		Result:       *result,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		AccessCount:  1,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := mcs.collection.ReplaceOne(ctx, bson.M{"fingerprint": fingerprint}, entry, opts); err != nil {
		mcs.logger.Error("store scan cache entry failed",
			zap.Error(err),
			zap.String("fingerprint", fingerprint))
		return fmt.Errorf("store scan cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry from both layers.
func (mcs *MongoCacheService) Delete(ctx context.Context, key string) error {
	mcs.l1Cache.Remove(key)

	fingerprint := utils.Fingerprint(key)
	if _, err := mcs.collection.DeleteOne(ctx, bson.M{"fingerprint": fingerprint}); err != nil {
		return fmt.Errorf("delete scan cache entry: %w", err)
	}

	return nil
}

// Clear drops both layers and resets the counters.
func (mcs *MongoCacheService) Clear(ctx context.Context) error {
	mcs.l1Cache.Purge()

	if _, err := mcs.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear scan cache: %w", err)
	}

	mcs.l1Hits.Store(0)
	mcs.mongoHits.Store(0)
	mcs.misses.Store(0)

	return nil
}

// GetStats reports combined counters; TotalItems is the persistent count.
func (mcs *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	mongoCount, err := mcs.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count scan cache documents: %w", err)
	}

	l1Hits := mcs.l1Hits.Load()
	mongoHits := mcs.mongoHits.Load()
	misses := mcs.misses.Load()
	hits := l1Hits + mongoHits

	mcs.logger.Debug("mongo cache stats",
		zap.Int64("l1_hits", l1Hits),
		zap.Int64("mongo_hits", mongoHits),
		zap.Int64("misses", misses),
		zap.Int("l1_size", mcs.l1Cache.Len()),
		zap.Int64("mongo_count", mongoCount))

	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: mongoCount,
	}, nil
}

// Exists reports key presence in either layer.
func (mcs *MongoCacheService) Exists(ctx context.Context, key string) (bool, error) {
	if mcs.l1Cache.Contains(key) {
		return true, nil
	}

	fingerprint := utils.Fingerprint(key)
	count, err := mcs.collection.CountDocuments(ctx, bson.M{"fingerprint": fingerprint})
	if err != nil {
		return false, fmt.Errorf("check scan cache existence: %w", err)
	}

	return count > 0, nil
}

// GetTTL always returns 0; the persistent cache does not expire entries.
func (mcs *MongoCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, nil
}

// Close is a no-op; the Mongo client belongs to the caller.
func (mcs *MongoCacheService) Close() error {
	return nil
}

// updateAccessStats bumps last_accessed and access_count. It runs after
// the request finishes, so it uses its own deadline instead of the
// request context.
func (mcs *MongoCacheService) updateAccessStats(id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"last_accessed": time.Now()},
		"$inc": bson.M{"access_count": 1},
	}

	if _, err := mcs.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		mcs.logger.Warn("update cache access stats failed", zap.Error(err))
	}
}

// WarmUp preloads the most-used entries into L1 after a restart.
func (mcs *MongoCacheService) WarmUp(ctx context.Context, limit int) error {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := mcs.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("warm up scan cache: %w", err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var entry scanCacheEntry
		if err := cursor.Decode(&entry); err != nil {
			mcs.logger.Warn("decode cache entry during warm up failed", zap.Error(err))
			continue
		}

		result := entry.Result
		mcs.l1Cache.Add(entry.Key, &result)
		count++
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("warm up cursor: %w", err)
	}

	mcs.logger.Info("cache warm up finished",
		zap.Int("loaded_items", count),
		zap.Int("l1_size", mcs.l1Cache.Len()))

	return nil
}
