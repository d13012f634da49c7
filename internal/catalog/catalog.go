package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when a variable has no catalog entry.
	ErrNotFound = errors.New("variable not found in catalog")
)

// Variable describes one weather variable the platform can serve.
type Variable struct {
	Name        string `json:"variableName"`
	Group       string `json:"group"`
	Unit        string `json:"unit,omitempty"`
	DataType    string `json:"dataType"`
	Description string `json:"description,omitempty"`
}

// PricingEntry holds the pricing configuration for one variable.
// TierPrices maps a subscription tier name to an override price; a missing
// tier means no override is configured for it.
type PricingEntry struct {
	VariableName string             `json:"variableName"`
	BasePrice    float64            `json:"basePrice"`
	Currency     string             `json:"currency"`
	TierPrices   map[string]float64 `json:"tierPrices,omitempty"`
	TaxRate      float64            `json:"taxRate"`
	TaxEnabled   bool               `json:"taxEnabled"`
}

// Snapshot is an immutable view of the catalog taken at planning time.
// A query resolves every lookup against one snapshot, so an administrative
// update landing mid-query never produces a half-old/half-new read.
type Snapshot struct {
	variables    map[string]Variable
	pricing      map[string]PricingEntry
	rates        map[string]float64
	baseCurrency string
	defaultPrice float64
}

// NewSnapshot builds a snapshot from fully materialized lookup tables.
func NewSnapshot(vars []Variable, pricing []PricingEntry, rates map[string]float64, baseCurrency string, defaultPrice float64) *Snapshot {
	s := &Snapshot{
		variables:    make(map[string]Variable, len(vars)),
		pricing:      make(map[string]PricingEntry, len(pricing)),
		rates:        make(map[string]float64, len(rates)),
		baseCurrency: baseCurrency,
		defaultPrice: defaultPrice,
	}
	for _, v := range vars {
		s.variables[v.Name] = v
	}
	for _, p := range pricing {
		s.pricing[p.VariableName] = p
	}
	for code, rate := range rates {
		s.rates[code] = rate
	}
	return s
}

// Lookup returns the catalog entry for a variable name.
func (s *Snapshot) Lookup(name string) (Variable, error) {
	v, ok := s.variables[name]
	if !ok {
		return Variable{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

// GroupsFor partitions the requested variable names by provider group.
// Unrecognized names are collected and returned together rather than
// failing on the first bad name.
func (s *Snapshot) GroupsFor(names []string) (map[string][]string, []string) {
	groups := make(map[string][]string)
	var unknown []string
	for _, name := range names {
		v, ok := s.variables[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		groups[v.Group] = append(groups[v.Group], name)
	}
	return groups, unknown
}

// Variables returns all catalog entries sorted by group then name.
func (s *Snapshot) Variables() []Variable {
	out := make([]Variable, 0, len(s.variables))
	for _, v := range s.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Pricing returns all pricing entries sorted by variable name.
func (s *Snapshot) Pricing() []PricingEntry {
	out := make([]PricingEntry, 0, len(s.pricing))
	for _, p := range s.pricing {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariableName < out[j].VariableName })
	return out
}

// PricingFor returns the pricing entry for a variable, if one is configured.
func (s *Snapshot) PricingFor(name string) (PricingEntry, bool) {
	p, ok := s.pricing[name]
	return p, ok
}

// Rate returns the exchange rate from the base currency to the given one.
func (s *Snapshot) Rate(currency string) (float64, bool) {
	r, ok := s.rates[currency]
	return r, ok
}

// BaseCurrency is the currency all base prices are denominated in.
func (s *Snapshot) BaseCurrency() string { return s.baseCurrency }

// DefaultPrice is the per-variable, per-location price applied when a
// variable has no pricing entry at all.
func (s *Snapshot) DefaultPrice() float64 { return s.defaultPrice }

// Catalog holds the current snapshot and swaps it atomically on refresh.
type Catalog struct {
	mu    sync.RWMutex
	snap  *Snapshot
	store *Store
}

// New loads the initial snapshot from the store.
func New(store *Store) (*Catalog, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return &Catalog{snap: snap, store: store}, nil
}

// Snapshot returns the current immutable snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Refresh re-reads the store and installs a fresh snapshot. On error the
// previous snapshot stays in place.
func (c *Catalog) Refresh() error {
	snap, err := c.store.Load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}
