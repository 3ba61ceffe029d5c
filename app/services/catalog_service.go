package services

import (
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/models"
)

// CatalogConfig configures the Meilisearch connection behind the
// competitor catalog.
type CatalogConfig struct {
	Host      string
	APIKey    string
	IndexName string
}

// CatalogService manages the competitor catalog: a Meilisearch index of
// names, aliases and groups that scanner competitor lists are built from.
type CatalogService struct {
	client    meilisearch.ServiceManager
	logger    *zap.Logger
	indexName string
}

// NewCatalogService connects to Meilisearch and verifies the instance is
// reachable before returning.
func NewCatalogService(config CatalogConfig, logger *zap.Logger) (*CatalogService, error) {
	client := meilisearch.New(config.Host, meilisearch.WithAPIKey(config.APIKey))

	health, err := client.Health()
	if err != nil {
		return nil, fmt.Errorf("connect to meilisearch: %w", err)
	}

	indexName := config.IndexName
	if indexName == "" {
		indexName = "competitors"
	}

	logger.Info("catalog connected",
		zap.String("host", config.Host),
		zap.String("index", indexName),
		zap.String("status", health.Status))

	return &CatalogService{
		client:    client,
		logger:    logger,
		indexName: indexName,
	}, nil
}

// EnsureIndex pushes the index settings the catalog relies on: group and
// rank must be filterable so LoadGroup can slice the index, rank must be
// sortable so flattened lists keep their configured order. Returns the
// settings task UID.
func (cs *CatalogService) EnsureIndex() (int64, error) {
	index := cs.client.Index(cs.indexName)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"name", "aliases"},
		FilterableAttributes: []string{"group", "rank"},
		SortableAttributes:   []string{"rank"},
		RankingRules: []string{
			"words", "typo", "proximity", "attribute", "sort", "exactness",
		},
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  3,
				TwoTypos: 7,
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("update catalog settings: %w", err)
	}

	cs.logger.Info("catalog index settings updated", zap.Int64("task_uid", task.TaskUID))
	return task.TaskUID, nil
}

// LoadGroup returns the flattened competitor list for a group: each
// entry's canonical name followed by its aliases, entries in ascending
// rank order. An empty group loads the whole index.
func (cs *CatalogService) LoadGroup(group string) ([]string, error) {
	index := cs.client.Index(cs.indexName)

	const pageSize = int64(1000)

	var names []string
	entries := 0
	for offset := int64(0); ; offset += pageSize {
		searchReq := &meilisearch.SearchRequest{
			Limit:  pageSize,
			Offset: offset,
			Sort:   []string{"rank:asc"},
		}
		if group != "" {
			searchReq.Filter = fmt.Sprintf("group = %q", group)
		}

		result, err := index.Search("", searchReq)
		if err != nil {
			return nil, fmt.Errorf("load catalog group %q: %w", group, err)
		}

		page, err := cs.parseHits(result)
		if err != nil {
			return nil, err
		}

		for i := range page {
			names = append(names, page[i].Names()...)
		}
		entries += len(page)

		if int64(len(result.Hits)) < pageSize {
			break
		}
	}

	cs.logger.Info("catalog group loaded",
		zap.String("group", group),
		zap.Int("entries", entries),
		zap.Int("names", len(names)))

	return names, nil
}

// SearchNames runs a free-text query over the catalog for the admin API.
func (cs *CatalogService) SearchNames(query string, limit int64) ([]models.CatalogEntry, error) {
	index := cs.client.Index(cs.indexName)

	if limit <= 0 {
		limit = 20
	}

	result, err := index.Search(query, &meilisearch.SearchRequest{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	return cs.parseHits(result)
}

// SeedEntries uploads catalog entries in batches of 1000 and returns the
// UID of the last indexing task.
func (cs *CatalogService) SeedEntries(entries []models.CatalogEntry) (int64, error) {
	index := cs.client.Index(cs.indexName)

	const batchSize = 1000

	var lastTask int64
	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		batch := entries[i:end]
		task, err := index.AddDocuments(batch, "id")
		if err != nil {
			return 0, fmt.Errorf("seed catalog batch %d-%d: %w", i, end, err)
		}
		lastTask = task.TaskUID

		cs.logger.Info("seeded catalog batch",
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}

	return lastTask, nil
}

// WaitForTask polls an indexing task until it finishes or the timeout
// elapses.
func (cs *CatalogService) WaitForTask(taskUID int64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		task, err := cs.client.GetTask(taskUID)
		if err != nil {
			return fmt.Errorf("get task %d: %w", taskUID, err)
		}

		switch task.Status {
		case "succeeded":
			return nil
		case "failed":
			return fmt.Errorf("task %d failed: %s", taskUID, task.Error.Message)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("task %d still %s after %s", taskUID, task.Status, timeout)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// Count returns the approximate number of catalog entries.
func (cs *CatalogService) Count() (int64, error) {
	index := cs.client.Index(cs.indexName)

	result, err := index.Search("", &meilisearch.SearchRequest{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("count catalog entries: %w", err)
	}

	return result.EstimatedTotalHits, nil
}

// parseHits converts raw search hits into catalog entries. Meilisearch
// returns each hit as a generic map, so every field is type-asserted and
// missing fields fall back to zero values.
func (cs *CatalogService) parseHits(result *meilisearch.SearchResponse) ([]models.CatalogEntry, error) {
	entries := make([]models.CatalogEntry, 0, len(result.Hits))

	for _, hit := range result.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			cs.logger.Warn("unexpected hit shape from catalog index")
			continue
		}

		var entry models.CatalogEntry
		if id, ok := hitMap["id"].(string); ok {
			entry.ID = id
		}
		if name, ok := hitMap["name"].(string); ok {
			entry.Name = name
		}
		if group, ok := hitMap["group"].(string); ok {
			entry.Group = group
		}
		if rank, ok := hitMap["rank"].(float64); ok {
			entry.Rank = int(rank)
		}
		if rawAliases, ok := hitMap["aliases"].([]interface{}); ok {
			aliases := make([]string, 0, len(rawAliases))
			for _, raw := range rawAliases {
				if alias, ok := raw.(string); ok {
					aliases = append(aliases, alias)
				}
			}
			entry.Aliases = aliases
		}

		if entry.Name == "" {
			cs.logger.Warn("catalog entry without name skipped", zap.String("id", entry.ID))
			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
