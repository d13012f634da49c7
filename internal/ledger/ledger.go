// Package ledger persists completed forecast queries for audit and
// billing. Writes are fire-and-forget: a ledger failure is logged and never
// surfaces to the caller.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/skyroute-io/skyroute/internal/forecast"
)

// SQLiteLedger appends query records to a weather_requests table.
type SQLiteLedger struct {
	db *sql.DB
	wg sync.WaitGroup
}

// Open opens (and if necessary initializes) the ledger database.
func Open(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS weather_requests (
		id TEXT PRIMARY KEY,
		locations TEXT NOT NULL,
		variables TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		timezone TEXT NOT NULL,
		tier TEXT,
		groups_planned TEXT,
		groups_answered TEXT,
		success INTEGER NOT NULL,
		stage TEXT NOT NULL,
		response_time REAL NOT NULL,
		total_cost REAL NOT NULL DEFAULT 0,
		currency TEXT,
		tax_amount REAL NOT NULL DEFAULT 0,
		final_amount REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_weather_requests_created ON weather_requests(created_at);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Record writes the record asynchronously. Errors are logged, never returned.
func (l *SQLiteLedger) Record(rec forecast.LedgerRecord) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.insert(rec); err != nil {
			log.Printf("ERROR: failed to write ledger record: %v", err)
		}
	}()
}

func (l *SQLiteLedger) insert(rec forecast.LedgerRecord) error {
	coords := make([][]float64, len(rec.Coordinates))
	for i, c := range rec.Coordinates {
		coords[i] = []float64{c.Lat, c.Lon}
	}
	locations, err := json.Marshal(coords)
	if err != nil {
		return err
	}
	variables, err := json.Marshal(rec.Variables)
	if err != nil {
		return err
	}
	planned, _ := json.Marshal(rec.GroupsPlanned)
	answered, _ := json.Marshal(rec.GroupsAnswered)

	_, err = l.db.Exec(`INSERT INTO weather_requests
		(id, locations, variables, timestamp, timezone, tier, groups_planned, groups_answered,
		 success, stage, response_time, total_cost, currency, tax_amount, final_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(locations), string(variables), rec.Timestamp, rec.Timezone,
		rec.Tier, string(planned), string(answered), rec.Success, string(rec.Stage),
		rec.ResponseTime.Seconds(), rec.TotalCost, rec.Currency, rec.TaxAmount, rec.FinalAmount)
	return err
}

// Entry is one persisted ledger row, as read back for inspection.
type Entry struct {
	ID           string
	Variables    []string
	Success      bool
	Stage        string
	TotalCost    float64
	Currency     string
	FinalAmount  float64
	CreatedAt    time.Time
}

// Recent returns the newest rows, newest first.
func (l *SQLiteLedger) Recent(limit int) ([]Entry, error) {
	l.wg.Wait() // settle in-flight writes first

	rows, err := l.db.Query(`SELECT id, variables, success, stage, total_cost, COALESCE(currency,''), final_amount, created_at
		FROM weather_requests ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var variables string
		if err := rows.Scan(&e.ID, &variables, &e.Success, &e.Stage, &e.TotalCost, &e.Currency, &e.FinalAmount, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(variables), &e.Variables); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close waits for in-flight writes and closes the database.
func (l *SQLiteLedger) Close() error {
	l.wg.Wait()
	return l.db.Close()
}
