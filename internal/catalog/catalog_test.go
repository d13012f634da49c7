package catalog

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestCatalog(t *testing.T) (*Catalog, *Store) {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat, err := New(store)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return cat, store
}

func TestLookupSeededVariables(t *testing.T) {
	cat, _ := openTestCatalog(t)
	snap := cat.Snapshot()

	v, err := snap.Lookup("ambient_temp(K)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Group != "omega" {
		t.Errorf("expected group omega, got %s", v.Group)
	}

	if _, err := snap.Lookup("bogus_var"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGroupsForPartitionsAndBatchesUnknowns(t *testing.T) {
	cat, _ := openTestCatalog(t)
	snap := cat.Snapshot()

	groups, unknown := snap.GroupsFor([]string{
		"ambient_temp(K)", "ghi(W/m2)", "ct", "made_up_1", "made_up_2",
	})

	if len(unknown) != 2 {
		t.Fatalf("expected 2 unknown variables, got %v", unknown)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if got := groups["omega"]; len(got) != 1 || got[0] != "ambient_temp(K)" {
		t.Errorf("unexpected omega subset: %v", got)
	}
	if got := groups["nova"]; len(got) != 1 || got[0] != "ghi(W/m2)" {
		t.Errorf("unexpected nova subset: %v", got)
	}
}

func TestSeededPricingAndCurrencies(t *testing.T) {
	cat, _ := openTestCatalog(t)
	snap := cat.Snapshot()

	entry, ok := snap.PricingFor("ghi(W/m2)")
	if !ok {
		t.Fatal("expected pricing entry for ghi(W/m2)")
	}
	if entry.BasePrice != 1.0 || entry.TaxRate != 18.0 || !entry.TaxEnabled {
		t.Errorf("unexpected seeded pricing: %+v", entry)
	}

	if rate, ok := snap.Rate("USD"); !ok || rate != 0.012 {
		t.Errorf("expected USD rate 0.012, got %v (ok=%v)", rate, ok)
	}
	if _, ok := snap.Rate("JPY"); ok {
		t.Error("did not expect a JPY rate")
	}
	if snap.BaseCurrency() != "INR" {
		t.Errorf("expected base currency INR, got %s", snap.BaseCurrency())
	}
}

func TestRefreshPicksUpStoreWrites(t *testing.T) {
	cat, store := openTestCatalog(t)

	before := cat.Snapshot()
	if entry, _ := before.PricingFor("wind_10m"); entry.BasePrice != 1.0 {
		t.Fatalf("unexpected initial price: %v", entry.BasePrice)
	}

	err := store.UpsertPricing(PricingEntry{
		VariableName: "wind_10m",
		BasePrice:    2.5,
		Currency:     "INR",
		TaxRate:      18.0,
		TaxEnabled:   true,
		TierPrices:   map[string]float64{"business": 1.5},
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// The old snapshot must not see the write.
	if entry, _ := before.PricingFor("wind_10m"); entry.BasePrice != 1.0 {
		t.Error("existing snapshot changed after store write")
	}

	if err := cat.Refresh(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	after := cat.Snapshot()
	entry, _ := after.PricingFor("wind_10m")
	if entry.BasePrice != 2.5 {
		t.Errorf("expected refreshed price 2.5, got %v", entry.BasePrice)
	}
	if entry.TierPrices["business"] != 1.5 {
		t.Errorf("expected business override 1.5, got %v", entry.TierPrices)
	}
}
