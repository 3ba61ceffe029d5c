package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"gopkg.in/yaml.v3"

	"github.com/competitor-scanner/app/models"
)

// Converts a flat competitor CSV into the catalog seed YAML consumed by
// cmd/seedcatalog. Expected columns: name, aliases (";"-separated),
// group, rank. Rank may be empty; rows then keep their file order.
//
// Usage: go run scripts/convert_data.go -in competitors.csv -out catalog.yaml

func main() {
	inFile := flag.String("in", "competitors.csv", "Competitor CSV to convert")
	outFile := flag.String("out", "catalog.yaml", "Catalog seed YAML to write")
	flag.Parse()

	fmt.Println("🔄 Converting competitor list to catalog seed format...")
	fmt.Println("==========================================================")

	rows, err := loadRows(*inFile)
	if err != nil {
		log.Fatal("Error reading competitor CSV:", err)
	}
	fmt.Printf("✅ Loaded %d competitor rows\n", len(rows))

	seed := buildSeed(rows)

	if err := saveSeed(*outFile, seed); err != nil {
		log.Fatal("Error saving catalog seed:", err)
	}

	fmt.Printf("🎉 Successfully converted %d catalog entries!\n", len(seed.Entries))
	fmt.Printf("📁 Output saved to: %s\n", *outFile)

	printSummary(seed)
}

type row struct {
	name    string
	aliases []string
	group   string
	rank    int
}

func loadRows(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []row
	for i, record := range records {
		// Skip a header row
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		r := row{name: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			for _, alias := range strings.Split(record[1], ";") {
				if alias = strings.TrimSpace(alias); alias != "" {
					r.aliases = append(r.aliases, alias)
				}
			}
		}
		if len(record) > 2 {
			r.group = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			if rank, err := strconv.Atoi(strings.TrimSpace(record[3])); err == nil {
				r.rank = rank
			}
		}
		rows = append(rows, r)
	}

	return rows, nil
}

func buildSeed(rows []row) models.CatalogSeed {
	var seed models.CatalogSeed
	nextRank := make(map[string]int)

	for _, r := range rows {
		group := r.group
		if group == "" {
			group = "competitors"
		}

		rank := r.rank
		if rank == 0 {
			nextRank[group]++
			rank = nextRank[group]
		}

		seed.Entries = append(seed.Entries, models.CatalogEntry{
			ID:      slugify(r.name),
			Name:    r.name,
			Aliases: withGeneratedAliases(r.name, r.aliases),
			Group:   group,
			Rank:    rank,
		})
	}

	return seed
}

// slugify builds a stable document ID from a name.
func slugify(name string) string {
	ascii := strings.ToLower(unidecode.Unidecode(name))

	var b strings.Builder
	lastHyphen := true
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// withGeneratedAliases adds the ASCII transliteration when the name
// carries accents, so the catalog matches unaccented mentions too.
func withGeneratedAliases(name string, aliases []string) []string {
	out := append([]string{}, aliases...)

	ascii := unidecode.Unidecode(name)
	if ascii != name && !containsFold(out, ascii) {
		out = append(out, ascii)
	}

	return out
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func saveSeed(path string, seed models.CatalogSeed) error {
	data, err := yaml.Marshal(seed)
	if err != nil {
		return fmt.Errorf("error marshaling seed: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}

	return nil
}

func printSummary(seed models.CatalogSeed) {
	fmt.Println("\n📊 CONVERSION SUMMARY:")
	fmt.Println("========================")

	groupCounts := make(map[string]int)
	aliasTotal := 0
	for _, entry := range seed.Entries {
		groupCounts[entry.Group]++
		aliasTotal += len(entry.Aliases)
	}

	for group, count := range groupCounts {
		fmt.Printf("   %s: %d entries\n", group, count)
	}
	fmt.Printf("   aliases: %d total\n", aliasTotal)
}
