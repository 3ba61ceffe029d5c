package models

import "time"

// ScanRecord is one row in the flagged-scan audit log. Competitors holds
// the distinct names that were hit; the audit store flattens it to a
// single text column.
type ScanRecord struct {
	ID          int64     `json:"id"`
	ScanID      string    `json:"scan_id"`
	Fingerprint string    `json:"fingerprint"`
	Scanner     string    `json:"scanner"`
	RiskScore   float64   `json:"risk_score"`
	MatchCount  int       `json:"match_count"`
	Competitors []string  `json:"competitors,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewScanRecord builds an audit record from a finished scan result.
func NewScanRecord(result *ScanResult) *ScanRecord {
	return &ScanRecord{
		ScanID:      result.ScanID,
		Fingerprint: result.Fingerprint,
		Scanner:     result.TopScanner(),
		RiskScore:   result.MaxRisk(),
		MatchCount:  len(result.Matches),
		Competitors: result.CompetitorNames(),
		CreatedAt:   time.Now(),
	}
}
