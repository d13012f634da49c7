package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider groups served by the platform and their default endpoints.
var defaultEndpoints = map[string]string{
	"omega": "https://apidelta.skycaster.in/forecast/multiple/omega",
	"nova":  "https://apidelta.skycaster.in/forecast/multiple/nova",
	"arc":   "https://apidelta.skycaster.in/forecast/multiple/arc",
}

type AppConfig struct {
	// ProviderEndpoints maps provider group to its forecast endpoint URL.
	ProviderEndpoints map[string]string

	// UseMockProviders swaps the HTTP gateway for the deterministic mock.
	UseMockProviders bool

	// HTTPTimeout is the shared outbound client timeout;
	// ProviderCallTimeout bounds one provider-group call end to end.
	HTTPTimeout         time.Duration
	ProviderCallTimeout time.Duration

	// DatabasePath holds both the catalog tables and the request ledger.
	DatabasePath string

	// CatalogRefreshInterval controls how often the catalog snapshot is
	// re-read from the store.
	CatalogRefreshInterval time.Duration

	// DefaultTimezone applies when a request omits its timezone.
	DefaultTimezone string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.ProviderEndpoints = make(map[string]string, len(defaultEndpoints))
	base := os.Getenv("PROVIDER_BASE_URL")
	for group, url := range defaultEndpoints {
		if base != "" {
			url = fmt.Sprintf("%s/forecast/multiple/%s", strings.TrimSuffix(base, "/"), group)
		}
		cfg.ProviderEndpoints[group] = getenvDefault("PROVIDER_URL_"+strings.ToUpper(group), url)
	}

	cfg.UseMockProviders = getenvBool("USE_MOCK_PROVIDERS", false)

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	callTimeoutStr := getenvDefault("PROVIDER_CALL_TIMEOUT", "30s")
	callTimeout, err := time.ParseDuration(callTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_CALL_TIMEOUT: %w", err)
	}
	cfg.ProviderCallTimeout = callTimeout

	cfg.DatabasePath = getenvDefault("DATABASE_PATH", "data/skyroute.db")

	refreshStr := getenvDefault("CATALOG_REFRESH_INTERVAL", "5m")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CATALOG_REFRESH_INTERVAL: %w", err)
	}
	cfg.CatalogRefreshInterval = refresh

	cfg.DefaultTimezone = getenvDefault("DEFAULT_TIMEZONE", "Asia/Kolkata")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
