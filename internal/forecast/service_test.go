package forecast

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/skyroute-io/skyroute/internal/catalog"
)

func testCatalog(t *testing.T) (*catalog.Catalog, *catalog.Store) {
	t.Helper()
	store, err := catalog.OpenStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	cat, err := catalog.New(store)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return cat, store
}

// delayGateway answers every group successfully after its configured delay,
// recording which groups were called.
type delayGateway struct {
	delays map[string]time.Duration
	fail   map[string]bool

	mu     sync.Mutex
	called []string
}

func (g *delayGateway) Call(ctx context.Context, req SubRequest) (Result, error) {
	g.mu.Lock()
	g.called = append(g.called, req.Group)
	g.mu.Unlock()

	if d := g.delays[req.Group]; d > 0 {
		time.Sleep(d)
	}
	if g.fail[req.Group] {
		return Result{Group: req.Group, Variables: req.Variables, Err: "boom"}, nil
	}

	keyed := make(map[string]Record)
	for _, c := range req.Coordinates {
		rec := make(Record)
		for _, v := range req.Variables {
			rec[v] = 1.0
		}
		keyed[c.Key()] = rec
	}
	return Result{Group: req.Group, Variables: req.Variables, Success: true, Payload: Payload{Keyed: keyed}}, nil
}

// memLedger captures records for assertions.
type memLedger struct {
	mu   sync.Mutex
	recs []LedgerRecord
}

func (l *memLedger) Record(rec LedgerRecord) {
	l.mu.Lock()
	l.recs = append(l.recs, rec)
	l.mu.Unlock()
}

func (l *memLedger) last(t *testing.T) LedgerRecord {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) == 0 {
		t.Fatal("no ledger records written")
	}
	return l.recs[len(l.recs)-1]
}

func validQuery() Query {
	return Query{
		Coordinates: []Coordinate{{Lat: 26.85, Lon: 80.95}},
		Variables:   []string{"ambient_temp(K)", "ghi(W/m2)"},
		Timestamp:   futureTimestamp("Asia/Kolkata"),
		Timezone:    "Asia/Kolkata",
		Tier:        "free",
	}
}

func TestGetForecastEndToEnd(t *testing.T) {
	cat, _ := testCatalog(t)
	led := &memLedger{}
	svc := NewService(cat, &delayGateway{}, led)

	resp, err := svc.GetForecast(context.Background(), validQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, ok := resp.LocationData["26.85,80.95"]
	if !ok {
		t.Fatalf("expected location key 26.85,80.95, got %v", resp.LocationData)
	}
	if _, ok := loc["ambient_temp(K)"]; !ok {
		t.Error("missing omega variable in unified record")
	}
	if _, ok := loc["ghi(W/m2)"]; !ok {
		t.Error("missing nova variable in unified record")
	}

	// Exactly the two touched groups, no unused third.
	if len(resp.Metadata.EndpointsCalled) != 2 ||
		resp.Metadata.EndpointsCalled[0] != "nova" || resp.Metadata.EndpointsCalled[1] != "omega" {
		t.Errorf("unexpected endpointsCalled: %v", resp.Metadata.EndpointsCalled)
	}
	if resp.Metadata.LocationsCount != 1 {
		t.Errorf("unexpected locationsCount: %d", resp.Metadata.LocationsCount)
	}

	rec := led.last(t)
	if !rec.Success || rec.Stage != StageCompleted {
		t.Errorf("unexpected ledger record: %+v", rec)
	}
}

func TestGetForecastPricingMetadata(t *testing.T) {
	cat, _ := testCatalog(t)
	svc := NewService(cat, &delayGateway{}, nil)

	q := validQuery()
	q.Coordinates = append(q.Coordinates, Coordinate{Lat: 19.07, Lon: 72.87})

	// Seeded pricing: unit price 1.0, 18% tax. 2 variables x 2 locations.
	resp, err := svc.GetForecast(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := resp.Metadata
	if m.TotalCost != "4.00" || m.TaxAmount != "0.72" || m.FinalAmount != "4.72" {
		t.Errorf("unexpected pricing: cost=%s tax=%s final=%s", m.TotalCost, m.TaxAmount, m.FinalAmount)
	}
	if m.TaxApplied != "Yes" || m.TaxRate != "18.00%" || m.Currency != "INR" {
		t.Errorf("unexpected tax metadata: %+v", m)
	}
}

func TestGetForecastLatencyBoundedBySlowestCall(t *testing.T) {
	cat, _ := testCatalog(t)
	gw := &delayGateway{delays: map[string]time.Duration{
		"omega": 100 * time.Millisecond,
		"nova":  200 * time.Millisecond,
		"arc":   50 * time.Millisecond,
	}}
	svc := NewService(cat, gw, nil)

	q := validQuery()
	q.Variables = []string{"ambient_temp(K)", "ghi(W/m2)", "ct"}

	start := time.Now()
	resp, err := svc.GetForecast(context.Background(), q)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gw.mu.Lock()
	calls := len(gw.called)
	gw.mu.Unlock()
	if calls != 3 {
		t.Fatalf("expected 3 concurrent calls, got %d", calls)
	}
	if len(resp.Metadata.EndpointsCalled) != 3 {
		t.Fatalf("expected 3 groups answered, got %v", resp.Metadata.EndpointsCalled)
	}

	// Parallel fan-out: near max(100,200,50), not the 350ms sum.
	if elapsed < 200*time.Millisecond {
		t.Errorf("finished before the slowest call: %v", elapsed)
	}
	if elapsed > 330*time.Millisecond {
		t.Errorf("fan-out looks sequential: %v", elapsed)
	}
}

func TestGetForecastAllProvidersFailed(t *testing.T) {
	cat, _ := testCatalog(t)
	led := &memLedger{}
	gw := &delayGateway{fail: map[string]bool{"omega": true, "nova": true}}
	svc := NewService(cat, gw, led)

	resp, err := svc.GetForecast(context.Background(), validQuery())
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	if resp != nil {
		t.Error("expected no partial data on total failure")
	}

	rec := led.last(t)
	if rec.Success || rec.Stage != StageFetching {
		t.Errorf("unexpected ledger record: %+v", rec)
	}
}

func TestGetForecastPartialFailure(t *testing.T) {
	cat, _ := testCatalog(t)
	gw := &delayGateway{fail: map[string]bool{"omega": true}}
	svc := NewService(cat, gw, nil)

	resp, err := svc.GetForecast(context.Background(), validQuery())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}

	loc := resp.LocationData["26.85,80.95"]
	if _, ok := loc["ghi(W/m2)"]; !ok {
		t.Error("nova data missing despite nova succeeding")
	}
	if _, ok := loc["ambient_temp(K)"]; ok {
		t.Error("omega data present despite omega failing")
	}
	if len(resp.Metadata.EndpointsCalled) != 1 || resp.Metadata.EndpointsCalled[0] != "nova" {
		t.Errorf("endpointsCalled should expose partial coverage, got %v", resp.Metadata.EndpointsCalled)
	}
}

func TestGetForecastValidationFailsBeforeFanout(t *testing.T) {
	cat, _ := testCatalog(t)
	gw := &delayGateway{}
	svc := NewService(cat, gw, nil)

	q := validQuery()
	q.Timestamp = "2020-01-01 00:00:00"

	_, err := svc.GetForecast(context.Background(), q)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.called) != 0 {
		t.Errorf("gateway called despite validation failure: %v", gw.called)
	}
}
