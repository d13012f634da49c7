package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Default pricing applied when a variable has no pricing_config row.
const (
	DefaultBaseCurrency  = "INR"
	DefaultVariablePrice = 1.0
)

// Store is the SQLite-backed catalog/pricing store. The admin surface that
// writes to these tables lives elsewhere; here they are read into snapshots.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if necessary initializes) the catalog database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS variable_mapping (
		variable_name TEXT PRIMARY KEY,
		endpoint_type TEXT NOT NULL,
		unit TEXT,
		data_type TEXT NOT NULL DEFAULT 'float',
		description TEXT,
		is_active INTEGER NOT NULL DEFAULT 1
	);
	CREATE TABLE IF NOT EXISTS pricing_config (
		variable_name TEXT PRIMARY KEY,
		base_price REAL NOT NULL DEFAULT 1.0,
		currency TEXT NOT NULL DEFAULT 'INR',
		tax_rate REAL NOT NULL DEFAULT 18.0,
		tax_enabled INTEGER NOT NULL DEFAULT 1,
		free_plan_price REAL,
		developer_plan_price REAL,
		business_plan_price REAL,
		enterprise_plan_price REAL,
		is_active INTEGER NOT NULL DEFAULT 1
	);
	CREATE TABLE IF NOT EXISTS currency_config (
		currency_code TEXT PRIMARY KEY,
		currency_name TEXT,
		exchange_rate REAL NOT NULL DEFAULT 1.0,
		is_active INTEGER NOT NULL DEFAULT 1
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedIfEmpty(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Load materializes a snapshot from the active rows.
func (s *Store) Load() (*Snapshot, error) {
	rows, err := s.db.Query(`SELECT variable_name, endpoint_type, COALESCE(unit,''), data_type, COALESCE(description,'')
		FROM variable_mapping WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query variable_mapping: %w", err)
	}
	defer rows.Close()

	var vars []Variable
	for rows.Next() {
		var v Variable
		if err := rows.Scan(&v.Name, &v.Group, &v.Unit, &v.DataType, &v.Description); err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pricing, err := s.loadPricing()
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64)
	crows, err := s.db.Query(`SELECT currency_code, exchange_rate FROM currency_config WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query currency_config: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var code string
		var rate float64
		if err := crows.Scan(&code, &rate); err != nil {
			return nil, err
		}
		rates[code] = rate
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	return NewSnapshot(vars, pricing, rates, DefaultBaseCurrency, DefaultVariablePrice), nil
}

func (s *Store) loadPricing() ([]PricingEntry, error) {
	rows, err := s.db.Query(`SELECT variable_name, base_price, currency, tax_rate, tax_enabled,
		free_plan_price, developer_plan_price, business_plan_price, enterprise_plan_price
		FROM pricing_config WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing_config: %w", err)
	}
	defer rows.Close()

	var out []PricingEntry
	for rows.Next() {
		var p PricingEntry
		var free, dev, biz, ent sql.NullFloat64
		if err := rows.Scan(&p.VariableName, &p.BasePrice, &p.Currency, &p.TaxRate, &p.TaxEnabled,
			&free, &dev, &biz, &ent); err != nil {
			return nil, err
		}
		p.TierPrices = make(map[string]float64)
		for tier, v := range map[string]sql.NullFloat64{
			"free": free, "developer": dev, "business": biz, "enterprise": ent,
		} {
			if v.Valid {
				p.TierPrices[tier] = v.Float64
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPricing writes or replaces a pricing row. Used by seeding and tests;
// the admin write surface is external to this service.
func (s *Store) UpsertPricing(p PricingEntry) error {
	tier := func(name string) interface{} {
		if v, ok := p.TierPrices[name]; ok {
			return v
		}
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO pricing_config
		(variable_name, base_price, currency, tax_rate, tax_enabled,
		 free_plan_price, developer_plan_price, business_plan_price, enterprise_plan_price, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		p.VariableName, p.BasePrice, p.Currency, p.TaxRate, p.TaxEnabled,
		tier("free"), tier("developer"), tier("business"), tier("enterprise"))
	return err
}

// seedIfEmpty populates the registry with the platform's variable and
// currency tables on first open.
func (s *Store) seedIfEmpty() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM variable_mapping`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	seedVars := []Variable{
		{Name: "ambient_temp(K)", Group: "omega", Unit: "K", DataType: "float", Description: "Ambient temperature"},
		{Name: "wind_10m", Group: "omega", Unit: "m/s", DataType: "float", Description: "Wind speed at 10m"},
		{Name: "wind_100m", Group: "omega", Unit: "m/s", DataType: "float", Description: "Wind speed at 100m"},
		{Name: "relative_humidity(%)", Group: "omega", Unit: "%", DataType: "float", Description: "Relative humidity"},
		{Name: "temperature(K)", Group: "nova", Unit: "K", DataType: "float", Description: "Surface temperature"},
		{Name: "surface_pressure(Pa)", Group: "nova", Unit: "Pa", DataType: "float", Description: "Surface pressure"},
		{Name: "cumulus_precipitation(mm)", Group: "nova", Unit: "mm", DataType: "float", Description: "Cumulus precipitation"},
		{Name: "ghi(W/m2)", Group: "nova", Unit: "W/m2", DataType: "float", Description: "Global horizontal irradiance"},
		{Name: "ghi_farms(W/m2)", Group: "nova", Unit: "W/m2", DataType: "float", Description: "GHI for solar farms"},
		{Name: "clear_sky_ghi_farms(W/m2)", Group: "nova", Unit: "W/m2", DataType: "float", Description: "Clear-sky GHI for solar farms"},
		{Name: "albedo", Group: "nova", Unit: "", DataType: "float", Description: "Surface albedo"},
		{Name: "ct", Group: "arc", Unit: "", DataType: "string", Description: "Cloud type"},
		{Name: "pc", Group: "arc", Unit: "", DataType: "float", Description: "Precipitation class"},
		{Name: "pcph", Group: "arc", Unit: "", DataType: "float", Description: "Precipitation per hour"},
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, v := range seedVars {
		if _, err := tx.Exec(`INSERT INTO variable_mapping (variable_name, endpoint_type, unit, data_type, description)
			VALUES (?, ?, ?, ?, ?)`, v.Name, v.Group, v.Unit, v.DataType, v.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to seed variable %s: %w", v.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO pricing_config (variable_name, base_price, currency, tax_rate, tax_enabled)
			VALUES (?, ?, ?, ?, ?)`, v.Name, DefaultVariablePrice, DefaultBaseCurrency, 18.0, true); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to seed pricing for %s: %w", v.Name, err)
		}
	}

	seedCurrencies := []struct {
		code string
		name string
		rate float64
	}{
		{"INR", "Indian Rupee", 1.0},
		{"USD", "US Dollar", 0.012},
		{"EUR", "Euro", 0.011},
		{"GBP", "British Pound", 0.0095},
	}
	for _, c := range seedCurrencies {
		if _, err := tx.Exec(`INSERT INTO currency_config (currency_code, currency_name, exchange_rate)
			VALUES (?, ?, ?)`, c.code, c.name, c.rate); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to seed currency %s: %w", c.code, err)
		}
	}

	return tx.Commit()
}
