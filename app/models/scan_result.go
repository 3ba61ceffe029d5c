package models

import (
	"time"

	"github.com/competitor-scanner/internal/matcher"
)

// Scan status values reported by the API and stored in audit records.
const (
	StatusClean   = "clean"
	StatusFlagged = "flagged"
)

// ScanResult is the aggregated outcome of running one text through the
// configured scanner pipeline. It is the unit stored in the result cache,
// so every field has to survive a JSON or BSON round trip.
type ScanResult struct {
	ScanID          string             `json:"scan_id" bson:"scan_id"`
	SanitizedOutput string             `json:"sanitized_output" bson:"sanitized_output"`
	IsValid         bool               `json:"is_valid" bson:"is_valid"`
	RiskScores      map[string]float64 `json:"scanners" bson:"risk_scores"`
	Matches         []matcher.Match    `json:"matches" bson:"matches"`
	EntityCount     int                `json:"entity_count" bson:"entity_count"`
	Fingerprint     string             `json:"fingerprint,omitempty" bson:"fingerprint,omitempty"`
	Error           string             `json:"error,omitempty" bson:"error,omitempty"`
	ScannedAt       time.Time          `json:"scanned_at" bson:"scanned_at"`
}

// Status maps the verdict to its audit label.
func (sr *ScanResult) Status() string {
	if sr.IsValid {
		return StatusClean
	}
	return StatusFlagged
}

// MaxRisk returns the highest per-scanner risk score, 0 when nothing ran.
func (sr *ScanResult) MaxRisk() float64 {
	max := 0.0
	for _, risk := range sr.RiskScores {
		if risk > max {
			max = risk
		}
	}
	return max
}

// TopScanner returns the name of the scanner with the highest risk score.
// Ties break alphabetically so repeated calls stay stable.
func (sr *ScanResult) TopScanner() string {
	top := ""
	best := -1.0
	for name, risk := range sr.RiskScores {
		if risk > best || (risk == best && (top == "" || name < top)) {
			top = name
			best = risk
		}
	}
	return top
}

// CompetitorNames returns the distinct competitor names hit by this scan,
// in first-match order.
func (sr *ScanResult) CompetitorNames() []string {
	seen := make(map[string]bool, len(sr.Matches))
	names := make([]string, 0, len(sr.Matches))
	for _, m := range sr.Matches {
		if !seen[m.Competitor] {
			seen[m.Competitor] = true
			names = append(names, m.Competitor)
		}
	}
	return names
}
