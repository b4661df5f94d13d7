package server

import (
	"fmt"
	"os"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/herbgraph/pkg/kgapi"
)

// Catalog holds the family/genus/plant table served by /taxonomy.
type Catalog struct {
	entries atomic.Pointer[[]kgapi.TaxonomyEntry]
}

// NewCatalog returns a catalog holding entries.
func NewCatalog(entries []kgapi.TaxonomyEntry) *Catalog {
	c := &Catalog{}
	c.Replace(entries)
	return c
}

// Replace swaps the served table.
func (c *Catalog) Replace(entries []kgapi.TaxonomyEntry) {
	if entries == nil {
		entries = []kgapi.TaxonomyEntry{}
	}
	c.entries.Store(&entries)
}

// Entries returns the current table, never nil.
func (c *Catalog) Entries() []kgapi.TaxonomyEntry {
	if p := c.entries.Load(); p != nil {
		return *p
	}
	return []kgapi.TaxonomyEntry{}
}

// LoadTaxonomy reads a taxonomy_table.json file.
func LoadTaxonomy(path string) ([]kgapi.TaxonomyEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []kgapi.TaxonomyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}
