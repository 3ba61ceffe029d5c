package models

// CatalogEntry is one competitor in the Meilisearch catalog. Rank orders
// entries inside a group; lower ranks are matched first when the entry's
// names are flattened into a scanner's competitor list.
type CatalogEntry struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Group   string   `json:"group" yaml:"group"`
	Rank    int      `json:"rank" yaml:"rank"`
}

// Names returns the canonical name followed by its aliases, the order the
// flattened competitor list preserves.
func (ce *CatalogEntry) Names() []string {
	names := make([]string, 0, len(ce.Aliases)+1)
	names = append(names, ce.Name)
	names = append(names, ce.Aliases...)
	return names
}

// CatalogSeed is the YAML document consumed by the seeding tool.
type CatalogSeed struct {
	Entries []CatalogEntry `yaml:"entries"`
}
