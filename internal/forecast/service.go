package forecast

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/skyroute-io/skyroute/internal/catalog"
	"github.com/skyroute-io/skyroute/internal/metrics"
	"github.com/skyroute-io/skyroute/internal/pricing"
)

// Service runs a forecast query through its whole lifecycle: validate,
// plan, fan out, reconcile, price, persist. The catalog snapshot is taken
// once at planning time and used for every lookup in the query.
type Service struct {
	catalog *catalog.Catalog
	gateway Gateway
	ledger  Ledger
}

// NewService creates a new Service. A nil ledger disables persistence.
func NewService(cat *catalog.Catalog, gateway Gateway, ledger Ledger) *Service {
	return &Service{
		catalog: cat,
		gateway: gateway,
		ledger:  ledger,
	}
}

// GetForecast executes one query. Partial provider failure degrades to
// data gaps; only invalid input or a total provider failure is an error.
func (s *Service) GetForecast(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()
	snap := s.catalog.Snapshot()

	stage := StageValidating
	subs, err := Plan(snap, &q, time.Now())
	if err != nil {
		s.finish(q, stage, start, nil, nil, nil)
		return nil, err
	}

	stage = StageFetching
	planned := make([]string, 0, len(subs))
	for _, sub := range subs {
		planned = append(planned, sub.Group)
	}
	log.Printf("DEBUG: fanning out to %d provider groups for %d locations", len(subs), len(q.Coordinates))

	results := s.fanOut(ctx, subs)

	var answered []string
	for _, r := range results {
		if r.Success {
			answered = append(answered, r.Group)
		}
	}
	sort.Strings(answered)

	if len(answered) == 0 {
		s.finish(q, stage, start, planned, nil, nil)
		return nil, fmt.Errorf("%w: %d of %d calls failed", ErrAllProvidersFailed, len(subs), len(subs))
	}

	// From here the query always completes; gaps stay gaps.
	stage = StageReconciling
	unified := Reconcile(q.Coordinates, results)

	stage = StagePricing
	price := pricing.Compute(snap, q.Variables, len(q.Coordinates), q.Tier, q.Currency)

	stage = StageCompleted
	resp := &Response{
		LocationData: unified,
		Metadata: Metadata{
			Timestamp:          q.Timestamp,
			Timezone:           q.Timezone,
			EndpointsCalled:    answered,
			VariablesRequested: q.Variables,
			LocationsCount:     len(q.Coordinates),
			TotalCost:          pricing.Format(price.Subtotal),
			Currency:           price.Currency,
			TaxApplied:         yesNo(price.TaxEnabled),
			TaxRate:            pricing.Format(price.TaxRate) + "%",
			TaxAmount:          pricing.Format(price.TaxAmount),
			FinalAmount:        pricing.Format(price.FinalAmount),
		},
	}

	s.finish(q, stage, start, planned, answered, &price)
	return resp, nil
}

// fanOut issues one concurrent call per sub-request and waits for all of
// them, success or failure. No call's failure cancels or blocks a sibling,
// so total wall-clock time is bounded by the slowest single call.
func (s *Service) fanOut(ctx context.Context, subs []SubRequest) []Result {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []Result
	)

	for _, sub := range subs {
		sub := sub
		wg.Add(1)
		go func() {
			defer wg.Done()

			started := time.Now()
			res, err := s.gateway.Call(ctx, sub)
			if err != nil {
				// Config mistake, not a remote failure; record it as a
				// failed result so the siblings still get gathered.
				log.Printf("ERROR: gateway rejected group %s: %v", sub.Group, err)
				res = Result{Group: sub.Group, Variables: sub.Variables, Err: err.Error()}
			}
			metrics.RecordProviderCall(sub.Group, time.Since(started), res.Success)
			if !res.Success {
				log.Printf("provider %s call failed: %s", sub.Group, res.Err)
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// finish records metrics and hands the completed (or failed) query to the
// ledger. The ledger write is fire-and-forget inside the sink.
func (s *Service) finish(q Query, stage Stage, start time.Time, planned, answered []string, price *pricing.Result) {
	elapsed := time.Since(start)
	success := stage == StageCompleted
	metrics.RecordQuery(elapsed, success)

	if s.ledger == nil {
		return
	}
	rec := LedgerRecord{
		Coordinates:    q.Coordinates,
		Variables:      q.Variables,
		Timestamp:      q.Timestamp,
		Timezone:       q.Timezone,
		Tier:           q.Tier,
		GroupsPlanned:  planned,
		GroupsAnswered: answered,
		Success:        success,
		Stage:          stage,
		ResponseTime:   elapsed,
	}
	if !success {
		// Stage records where the query was when it failed.
		rec.Currency = s.catalog.Snapshot().BaseCurrency()
	}
	if price != nil {
		rec.TotalCost = price.Subtotal
		rec.Currency = price.Currency
		rec.TaxAmount = price.TaxAmount
		rec.FinalAmount = price.FinalAmount
	}
	s.ledger.Record(rec)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
