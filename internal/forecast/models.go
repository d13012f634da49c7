package forecast

import (
	"context"
	"strconv"
	"time"
)

// TimestampLayout is the wire format for query timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Coordinate is a (latitude, longitude) location identifier.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Key returns the canonical coordinate key used throughout the unified
// response: shortest-form decimal lat and lon joined by a comma, e.g.
// "26.85,80.95". Providers key their payloads the same way.
func (c Coordinate) Key() string {
	return formatFloat(c.Lat) + "," + formatFloat(c.Lon)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Query is a validated (or to-be-validated) forecast request. When is set
// by the planner after the timestamp passes validation.
type Query struct {
	Coordinates []Coordinate
	Variables   []string
	Timestamp   string // TimestampLayout, interpreted in Timezone
	Timezone    string // IANA name
	Tier        string // caller's subscription tier
	Currency    string // requested display currency; empty means base
	When        time.Time
}

// SubRequest is one provider-group call derived from a query. Every
// sub-request carries the full coordinate list; providers do their own
// per-location resolution.
type SubRequest struct {
	Group       string
	Coordinates []Coordinate
	Variables   []string
	Timestamp   string
	Timezone    string
}

// Record is one location's raw variable data as returned by a provider.
type Record map[string]interface{}

// Payload is a provider response normalized just enough to address
// per-location records: positional entries, keyed entries, or both,
// depending on the shape that group returns.
type Payload struct {
	Records []Record
	Keyed   map[string]Record
}

// Result is the outcome of one provider-group call. Remote failures are
// captured here, never raised.
type Result struct {
	Group     string
	Variables []string
	Success   bool
	Payload   Payload
	Err       string
}

// Gateway performs one network call per sub-request. The returned error is
// reserved for programmer/config mistakes (e.g. an unknown group); every
// remote failure mode lands in Result with Success=false.
type Gateway interface {
	Call(ctx context.Context, req SubRequest) (Result, error)
}

// LedgerRecord is the completed-query record handed to the ledger sink.
type LedgerRecord struct {
	Coordinates     []Coordinate
	Variables       []string
	Timestamp       string
	Timezone        string
	Tier            string
	GroupsPlanned   []string
	GroupsAnswered  []string
	Success         bool
	Stage           Stage
	ResponseTime    time.Duration
	TotalCost       float64
	Currency        string
	TaxAmount       float64
	FinalAmount     float64
}

// Ledger persists completed query records for audit/billing. Implementations
// must be fire-and-forget: a ledger failure never fails the query.
type Ledger interface {
	Record(rec LedgerRecord)
}

// Stage tracks a query through its lifecycle. Failed is reachable only from
// Validating (bad input) and Fetching (all providers failed); once
// reconciliation starts the query always completes.
type Stage string

const (
	StageValidating  Stage = "validating"
	StagePlanning    Stage = "planning"
	StageFetching    Stage = "fetching"
	StageReconciling Stage = "reconciling"
	StagePricing     Stage = "pricing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// Response is the unified forecast returned to the caller.
type Response struct {
	LocationData map[string]map[string]interface{} `json:"locationData"`
	Metadata     Metadata                          `json:"metadata"`
}

// Metadata describes what was fetched and what it cost. Monetary fields are
// two-decimal display strings; full precision lives in the ledger record.
type Metadata struct {
	Timestamp          string   `json:"timestamp"`
	Timezone           string   `json:"timezone"`
	EndpointsCalled    []string `json:"endpointsCalled"`
	VariablesRequested []string `json:"variablesRequested"`
	LocationsCount     int      `json:"locationsCount"`
	TotalCost          string   `json:"totalCost"`
	Currency           string   `json:"currency"`
	TaxApplied         string   `json:"taxApplied"`
	TaxRate            string   `json:"taxRate"`
	TaxAmount          string   `json:"taxAmount"`
	FinalAmount        string   `json:"finalAmount"`
}
