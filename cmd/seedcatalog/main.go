package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/competitor-scanner/app/models"
	"github.com/competitor-scanner/app/services"
)

// seedcatalog uploads a YAML competitor catalog into Meilisearch and
// waits for indexing to finish.

func main() {
	seedFile := flag.String("f", "catalog.yaml", "Path to the catalog seed YAML")
	host := flag.String("host", "http://localhost:7700", "Meilisearch host")
	apiKey := flag.String("key", "", "Meilisearch API key")
	indexName := flag.String("index", "competitors", "Meilisearch index name")
	timeout := flag.Duration("timeout", 2*time.Minute, "How long to wait for indexing tasks")
	flag.Parse()

	raw, err := os.ReadFile(*seedFile)
	if err != nil {
		log.Fatal("Cannot read seed file: ", err)
	}

	var seed models.CatalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		log.Fatal("Cannot parse seed file: ", err)
	}
	if len(seed.Entries) == 0 {
		log.Fatalf("No entries in %s", *seedFile)
	}
	fmt.Printf("Loaded %d catalog entries from %s\n", len(seed.Entries), *seedFile)

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Cannot initialize logger: ", err)
	}
	defer logger.Sync()

	catalog, err := services.NewCatalogService(services.CatalogConfig{
		Host:      *host,
		APIKey:    *apiKey,
		IndexName: *indexName,
	}, logger)
	if err != nil {
		log.Fatal("Cannot connect to Meilisearch: ", err)
	}

	fmt.Println("Pushing index settings...")
	settingsTask, err := catalog.EnsureIndex()
	if err != nil {
		log.Fatal("Settings update failed: ", err)
	}
	if err := catalog.WaitForTask(settingsTask, *timeout); err != nil {
		log.Fatal("Settings task did not finish: ", err)
	}

	fmt.Println("Seeding entries...")
	seedTask, err := catalog.SeedEntries(seed.Entries)
	if err != nil {
		log.Fatal("Seeding failed: ", err)
	}
	if err := catalog.WaitForTask(seedTask, *timeout); err != nil {
		log.Fatal("Indexing task did not finish: ", err)
	}

	count, err := catalog.Count()
	if err != nil {
		log.Fatal("Cannot count indexed entries: ", err)
	}
	fmt.Printf("Done. Index %q now holds %d entries\n", *indexName, count)
}
