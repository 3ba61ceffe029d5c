package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/competitor-scanner/internal/scanner"
)

// AppCfg carries the service-wide knobs.
type AppCfg struct {
	Name               string `yaml:"name" json:"name"`
	Version            string `yaml:"version" json:"version"`
	FailFast           bool   `yaml:"fail_fast" json:"fail_fast"`
	ScanTimeoutSeconds int    `yaml:"scan_timeout_seconds" json:"scan_timeout_seconds"`
	MaxConcurrency     int64  `yaml:"max_concurrency" json:"max_concurrency"`
}

// ScanTimeout is the per-request pipeline deadline.
func (a AppCfg) ScanTimeout() time.Duration {
	return time.Duration(a.ScanTimeoutSeconds) * time.Second
}

// AuthCfg holds the API bearer token. An empty token disables auth.
type AuthCfg struct {
	Token string `yaml:"token" json:"-"`
}

// RateLimitCfg configures the per-client token bucket.
type RateLimitCfg struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RPS     float64 `yaml:"rps" json:"rps"`
	Burst   int     `yaml:"burst" json:"burst"`
}

// CatalogCfg toggles the Meilisearch competitor catalog.
type CatalogCfg struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ExtractorCfg tunes entity extraction. Zero values defer to the
// backend's own defaults.
type ExtractorCfg struct {
	Labels   []string `yaml:"labels" json:"labels"`
	MinScore float64  `yaml:"min_score" json:"min_score"`
	MaxBytes int      `yaml:"max_bytes" json:"max_bytes"`
}

// ScannerCfg is one scanner definition. CatalogGroup, when set, merges
// that catalog group's names into the competitor list at build time.
type ScannerCfg struct {
	scanner.Config `yaml:",inline"`
	CatalogGroup   string `yaml:"catalog_group" json:"catalog_group"`
}

// ServiceCfg is the full scanner.yaml shape.
type ServiceCfg struct {
	App       AppCfg       `yaml:"app" json:"app"`
	Auth      AuthCfg      `yaml:"auth" json:"auth"`
	RateLimit RateLimitCfg `yaml:"rate_limit" json:"rate_limit"`
	Catalog   CatalogCfg   `yaml:"catalog" json:"catalog"`
	Extractor ExtractorCfg `yaml:"extractor" json:"extractor"`
	Scanners  []ScannerCfg `yaml:"scanners" json:"scanners"`
}

var C ServiceCfg

var envVar = regexp.MustCompile(`\$\{([^}^{]+)\}`)

// expandEnv substitutes ${VAR} and ${VAR:default} references in the raw
// config bytes. A set-but-empty variable still wins over the default.
func expandEnv(raw []byte) []byte {
	return envVar.ReplaceAllFunc(raw, func(match []byte) []byte {
		parts := strings.SplitN(string(match[2:len(match)-1]), ":", 2)
		if value, ok := os.LookupEnv(parts[0]); ok {
			return []byte(value)
		}
		if len(parts) == 2 {
			return []byte(parts[1])
		}
		return nil
	})
}

// Load reads the scanner configuration into C.
func Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(expandEnv(b), &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	C = cfg
	return nil
}

// Defaults is the configuration used before Load or for missing keys.
func Defaults() ServiceCfg {
	return ServiceCfg{
		App: AppCfg{
			Name:               "competitor-scanner",
			Version:            "1.0.0",
			ScanTimeoutSeconds: 30,
			MaxConcurrency:     4,
		},
		RateLimit: RateLimitCfg{
			RPS:   50,
			Burst: 100,
		},
	}
}

func init() {
	C = Defaults()
}
