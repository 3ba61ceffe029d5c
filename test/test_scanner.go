package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/competitor-scanner/app/requests"
	"github.com/competitor-scanner/app/services"
	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/normalizer"
	"github.com/competitor-scanner/internal/scanner"
)

// Manual smoke test: go run test/test_scanner.go
// Runs sample texts through the full pipeline with the prose NER backend.

func main() {
	// Setup logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	competitors := []string{"Acme Analytics", "Globex", "Initech"}

	// Setup scanner with the prose backend
	ex := extractor.NewProseExtractor(nil, logger)
	sc, err := scanner.New(scanner.Config{
		Name:        "competitors",
		Competitors: competitors,
		Threshold:   0.85,
		Redact:      true,
	}, ex, logger)
	if err != nil {
		log.Fatal("Cannot build scanner:", err)
	}

	// Setup service
	scanService := services.NewScanService(services.ScanServiceConfig{},
		[]*scanner.Scanner{sc}, nil, nil, nil, logger)

	testTexts := []string{
		"You could try Acme Analytics for the dashboard layer.",
		"Our own product covers that use case end to end.",
		"Globex Corporation and Initech both ship similar tooling.",
		"Have a look at ACME analytics, their ingest is faster.",
		"Postgres plus Grafana would cover the reporting needs.",
	}

	fmt.Println("=== TESTING COMPETITOR SCANNER ===")
	fmt.Println()

	for i, text := range testTexts {
		fmt.Printf("🔍 TEST %d: %s\n", i+1, text)
		fmt.Println("────────────────────────────────────────────────────────────")

		result, _, err := scanService.AnalyzeOutput(context.Background(), "", text, requests.ScanOptions{SkipCache: true})
		if err != nil {
			fmt.Printf("❌ ERROR: %v\n", err)
			fmt.Println()
			continue
		}

		fmt.Printf("📊 STATUS: %s\n", result.Status())
		fmt.Printf("📝 SANITIZED: %s\n", result.SanitizedOutput)
		fmt.Printf("🎯 ENTITIES: %d, matches: %d\n", result.EntityCount, len(result.Matches))
		for _, m := range result.Matches {
			fmt.Printf("  - %q -> %s (%.2f, %s)\n", m.Span.Text, m.Competitor, m.Similarity, m.Kind)
		}
		fmt.Println()
	}

	fmt.Println("=== TESTING NORMALIZER DIRECTLY ===")
	fmt.Println()

	norm, err := normalizer.NewNameNormalizer()
	if err != nil {
		log.Fatal("Cannot build normalizer:", err)
	}

	testNames := []string{
		"Acme Analytics, Inc.",
		"GLOBEX Corp",
		"Café Déjà Vu LLC",
		"initech ltd.",
	}

	for i, name := range testNames {
		fmt.Printf("🔧 NORMALIZER TEST %d: %q -> %q\n", i+1, name, norm.Normalize(name))
	}
}
