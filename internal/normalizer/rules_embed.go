package normalizer

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed data/org_rules.yaml
var orgRulesYAML []byte

// RulesConfig holds the organization-name rules shipped with the binary.
type RulesConfig struct {
	CorporateSuffixes []string `yaml:"corporate_suffixes"`
	LeadingArticles   []string `yaml:"leading_articles"`
}

// LoadRulesConfig decodes the embedded default rules.
func LoadRulesConfig() (*RulesConfig, error) {
	config := &RulesConfig{}
	if err := yaml.Unmarshal(orgRulesYAML, config); err != nil {
		return nil, err
	}
	return config, nil
}
