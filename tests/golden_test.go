package tests

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/scanner"
)

// goldenCase pins one scan end to end: the scanner configuration, the terms
// the extractor reports, the input text and the expected verdict. Risk is
// asserted exactly when set; min_risk bounds fuzzy scores whose exact value
// depends on the similarity blend.
type goldenCase struct {
	Input   string         `json:"input"`
	Terms   []string       `json:"terms"`
	Scanner scanner.Config `json:"scanner"`
	Expect  struct {
		IsValid     bool     `json:"is_valid"`
		Sanitized   string   `json:"sanitized"`
		EntityCount int      `json:"entity_count"`
		MatchCount  int      `json:"match_count"`
		Competitors []string `json:"competitors,omitempty"`
		Risk        *float64 `json:"risk,omitempty"`
		MinRisk     float64  `json:"min_risk,omitempty"`
	} `json:"expect"`
}

func TestGoldenScans(t *testing.T) {
	files, err := os.ReadDir("golden")
	require.NoError(t, err)

	ran := 0
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		ran++
		t.Run(file.Name(), func(t *testing.T) {
			runGoldenFile(t, filepath.Join("golden", file.Name()))
		})
	}
	require.NotZero(t, ran, "no golden cases found")
}

func runGoldenFile(t *testing.T, path string) {
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var tc goldenCase
	require.NoError(t, json.Unmarshal(data, &tc))

	sc, err := scanner.New(tc.Scanner, extractor.NewStaticExtractor(tc.Terms), zap.NewNop())
	require.NoError(t, err)

	result, err := sc.Scan(context.Background(), "", tc.Input)
	require.NoError(t, err)

	assert.Equal(t, tc.Expect.IsValid, result.IsValid)
	assert.Equal(t, tc.Expect.Sanitized, result.SanitizedText)
	assert.Equal(t, tc.Expect.EntityCount, result.EntityCount)
	assert.Len(t, result.Matches, tc.Expect.MatchCount)

	if tc.Expect.Risk != nil {
		assert.InDelta(t, *tc.Expect.Risk, result.RiskScore, 1e-9)
	}
	if tc.Expect.MinRisk > 0 {
		assert.GreaterOrEqual(t, result.RiskScore, tc.Expect.MinRisk)
	}

	if tc.Expect.Competitors != nil {
		got := make([]string, len(result.Matches))
		for i, m := range result.Matches {
			got[i] = m.Competitor
		}
		assert.Equal(t, tc.Expect.Competitors, got)
	}
}
