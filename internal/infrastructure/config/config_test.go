package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		}
		os.Unsetenv(key)
	}
}

var siigoEnvVars = []string{
	"SIIGO_BASE_URL", "SIIGO_AUTH_URL", "SIIGO_USERNAME", "SIIGO_ACCESS_KEY", "SIIGO_PARTNER_ID",
	"SIIGO_API_TIMEOUT", "SIIGO_OPERATION_TIMEOUT", "SIIGO_AUTH_RATE_LIMIT_PAUSE",
	"SIIGO_MAX_CONCURRENT_REQUESTS", "SIIGO_RATE_LIMIT_RPS",
	"SIIGO_PURCHASE_DOCUMENT_ID", "SIIGO_DEFAULT_PAYMENT_ID",
	"SIIGO_PURCHASES_PATH", "COMPRAS_URL", "SIIGO_PURCHASES_CREATE_URL", "SIIGO_VOUCHERS_PATH",
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t,
		"APP_NAME", "APP_VERSION", "APP_ENV", "APP_PORT",
		"HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT", "HTTP_SHUTDOWN_TIMEOUT", "HTTP_REQUEST_TIMEOUT",
		"JWT_ISSUER_URI", "JWT_JWK_SET_URI", "AUTH_CLOCK_SKEW", "AUTH_BYPASS_PATHS",
		"LOG_LEVEL", "DB_HOST", "DB_NAME",
		"CACHE_CATALOG_TTL", "CACHE_REDIS_ADDR", "CACHE_REDIS_PREFIX",
		"METRICS_ENABLED", "METRICS_PATH",
	)
	clearEnv(t, siigoEnvVars...)

	// Set AUTH_ENABLED=false to avoid requiring JWT config
	t.Setenv("AUTH_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "ms_siigo_gateway" {
		t.Errorf("expected default app name 'ms_siigo_gateway', got %q", cfg.App.Name)
	}

	if cfg.App.Version != "0.1.0" {
		t.Errorf("expected default version '0.1.0', got %q", cfg.App.Version)
	}

	if cfg.App.Environment != "local" {
		t.Errorf("expected default environment 'local', got %q", cfg.App.Environment)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}

	if cfg.HTTP.RequestTimeout != 75*time.Second {
		t.Errorf("expected default request timeout 75s, got %v", cfg.HTTP.RequestTimeout)
	}

	if cfg.Auth.Enabled != false {
		t.Errorf("expected auth enabled false (as set in test), got %v", cfg.Auth.Enabled)
	}

	if len(cfg.Auth.BypassPaths) != 2 || cfg.Auth.BypassPaths[0] != "/health" || cfg.Auth.BypassPaths[1] != "/metrics" {
		t.Errorf("expected default bypass paths [/health /metrics], got %v", cfg.Auth.BypassPaths)
	}

	if cfg.Database.Enabled() {
		t.Error("expected database disabled without DB_HOST")
	}

	if cfg.Cache.RedisAddr != "" {
		t.Errorf("expected in-memory cache by default, got redis addr %q", cfg.Cache.RedisAddr)
	}

	if cfg.Cache.CatalogTTL != 10*time.Minute {
		t.Errorf("expected catalog TTL 10m, got %v", cfg.Cache.CatalogTTL)
	}

	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected metrics enabled at /metrics, got %v %q", cfg.Metrics.Enabled, cfg.Metrics.Path)
	}
}

func TestLoad_SiigoDefaults(t *testing.T) {
	clearEnv(t, siigoEnvVars...)
	t.Setenv("AUTH_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := cfg.Siigo
	if s.BaseURL != "https://api.siigo.com/v1" {
		t.Errorf("expected default base URL, got %q", s.BaseURL)
	}
	if s.AuthURL != "https://api.siigo.com/auth" {
		t.Errorf("expected default auth URL, got %q", s.AuthURL)
	}
	if s.Username != "" || s.AccessKey != "" || s.PartnerID != "" {
		t.Errorf("expected empty credentials, got %q %q %q", s.Username, s.AccessKey, s.PartnerID)
	}
	if s.APITimeout != 30*time.Second {
		t.Errorf("expected API timeout 30s, got %v", s.APITimeout)
	}
	if s.OperationTimeout != 60*time.Second {
		t.Errorf("expected operation timeout 60s, got %v", s.OperationTimeout)
	}
	if s.AuthRateLimitPause != 1200*time.Millisecond {
		t.Errorf("expected auth rate-limit pause 1.2s, got %v", s.AuthRateLimitPause)
	}
	if s.MaxConcurrent != 10 || s.RateLimitRPS != 10 {
		t.Errorf("expected concurrency 10 and 10 rps, got %d and %d", s.MaxConcurrent, s.RateLimitRPS)
	}
	if s.PurchaseDocumentID != 7291 {
		t.Errorf("expected purchase document id 7291, got %d", s.PurchaseDocumentID)
	}
	if s.DefaultPaymentID != 8467 {
		t.Errorf("expected default payment id 8467, got %d", s.DefaultPaymentID)
	}
	if s.PurchasesPath != "" || s.PurchasesCreateURL != "" || s.VouchersPath != "" {
		t.Errorf("expected no path overrides, got %q %q %q", s.PurchasesPath, s.PurchasesCreateURL, s.VouchersPath)
	}
}

func TestLoad_SiigoOverrides(t *testing.T) {
	clearEnv(t, siigoEnvVars...)
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("SIIGO_USERNAME", " api@empresa.co ")
	t.Setenv("SIIGO_ACCESS_KEY", "secret-key")
	t.Setenv("SIIGO_PARTNER_ID", "GatewayPartner")
	t.Setenv("SIIGO_AUTH_RATE_LIMIT_PAUSE", "2s")
	t.Setenv("SIIGO_PURCHASE_DOCUMENT_ID", "9001")
	t.Setenv("SIIGO_DEFAULT_PAYMENT_ID", "not-a-number")
	t.Setenv("SIIGO_VOUCHERS_PATH", "https://vouchers.example.com/v1/vouchers")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Siigo.Username != "api@empresa.co" {
		t.Errorf("expected trimmed username, got %q", cfg.Siigo.Username)
	}
	if cfg.Siigo.AccessKey != "secret-key" || cfg.Siigo.PartnerID != "GatewayPartner" {
		t.Errorf("unexpected credentials %q %q", cfg.Siigo.AccessKey, cfg.Siigo.PartnerID)
	}
	if cfg.Siigo.AuthRateLimitPause != 2*time.Second {
		t.Errorf("expected pause 2s, got %v", cfg.Siigo.AuthRateLimitPause)
	}
	if cfg.Siigo.PurchaseDocumentID != 9001 {
		t.Errorf("expected purchase document id 9001, got %d", cfg.Siigo.PurchaseDocumentID)
	}
	if cfg.Siigo.DefaultPaymentID != 8467 {
		t.Errorf("expected invalid payment id to fall back to 8467, got %d", cfg.Siigo.DefaultPaymentID)
	}
	if cfg.Siigo.VouchersPath != "https://vouchers.example.com/v1/vouchers" {
		t.Errorf("unexpected vouchers path %q", cfg.Siigo.VouchersPath)
	}
}

func TestLoad_PurchasesPathFallsBackToComprasURL(t *testing.T) {
	clearEnv(t, siigoEnvVars...)
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("COMPRAS_URL", "https://legacy.example.com/v1/purchases")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Siigo.PurchasesPath != "https://legacy.example.com/v1/purchases" {
		t.Errorf("expected COMPRAS_URL fallback, got %q", cfg.Siigo.PurchasesPath)
	}

	t.Setenv("SIIGO_PURCHASES_PATH", "/purchases-v2")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Siigo.PurchasesPath != "/purchases-v2" {
		t.Errorf("expected SIIGO_PURCHASES_PATH to win, got %q", cfg.Siigo.PurchasesPath)
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"empty base url", "SIIGO_BASE_URL", "", "invalid config: SIIGO_BASE_URL cannot be empty"},
		{"empty auth url", "SIIGO_AUTH_URL", "", "invalid config: SIIGO_AUTH_URL cannot be empty"},
		{"negative concurrency", "SIIGO_MAX_CONCURRENT_REQUESTS", "-1", "invalid config: SIIGO_MAX_CONCURRENT_REQUESTS cannot be negative"},
		{"negative rps", "SIIGO_RATE_LIMIT_RPS", "-5", "invalid config: SIIGO_RATE_LIMIT_RPS cannot be negative"},
		{"zero purchase document", "SIIGO_PURCHASE_DOCUMENT_ID", "0", "invalid config: SIIGO_PURCHASE_DOCUMENT_ID must be greater than 0"},
		{"negative payment id", "SIIGO_DEFAULT_PAYMENT_ID", "-3", "invalid config: SIIGO_DEFAULT_PAYMENT_ID must be greater than 0"},
		{"relative metrics path", "METRICS_PATH", "metrics", "invalid config: METRICS_PATH must start with '/'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, siigoEnvVars...)
			clearEnv(t, "METRICS_ENABLED", "METRICS_PATH")
			t.Setenv("AUTH_ENABLED", "false")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error %q", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestDatabaseSettings_Enabled(t *testing.T) {
	if (DatabaseSettings{Database: "gateway"}).Enabled() {
		t.Error("expected disabled without host")
	}
	if (DatabaseSettings{Host: "db"}).Enabled() {
		t.Error("expected disabled without database name")
	}
	if !(DatabaseSettings{Host: "db", Database: "gateway"}).Enabled() {
		t.Error("expected enabled with host and database name")
	}
}

func TestLoad_WithCustomValues(t *testing.T) {
	// Set custom values
	os.Setenv("APP_NAME", "test-app")
	os.Setenv("APP_VERSION", "2.0.0")
	os.Setenv("APP_ENV", "production")
	os.Setenv("APP_PORT", "9090")
	os.Setenv("AUTH_ENABLED", "false")
	defer func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("APP_VERSION")
		os.Unsetenv("APP_ENV")
		os.Unsetenv("APP_PORT")
		os.Unsetenv("AUTH_ENABLED")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("expected app name 'test-app', got %q", cfg.App.Name)
	}

	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", cfg.App.Version)
	}

	if cfg.App.Environment != "production" {
		t.Errorf("expected environment 'production', got %q", cfg.App.Environment)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}

	if cfg.Auth.Enabled != false {
		t.Errorf("expected auth enabled false, got %v", cfg.Auth.Enabled)
	}
}

func TestLoad_AuthEnabled_MissingIssuerURI(t *testing.T) {
	os.Setenv("AUTH_ENABLED", "true")
	os.Unsetenv("JWT_ISSUER_URI")
	os.Unsetenv("JWT_JWK_SET_URI")
	defer func() {
		os.Unsetenv("AUTH_ENABLED")
	}()

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AUTH_ENABLED=true and JWT_ISSUER_URI is missing")
	}

	if err.Error() != "invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_AuthEnabled_MissingJWKSetURI(t *testing.T) {
	os.Setenv("AUTH_ENABLED", "true")
	os.Setenv("JWT_ISSUER_URI", "https://issuer.example.com")
	os.Unsetenv("JWT_JWK_SET_URI")
	defer func() {
		os.Unsetenv("AUTH_ENABLED")
		os.Unsetenv("JWT_ISSUER_URI")
	}()

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AUTH_ENABLED=true and JWT_JWK_SET_URI is missing")
	}

	if err.Error() != "invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestHTTPSettings_Address(t *testing.T) {
	settings := HTTPSettings{Port: 8080}
	addr := settings.Address()

	if addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", addr)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := getEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("expected 'test-value', got %q", value)
	}

	value = getEnv("NON_EXISTENT_KEY", "default-value")
	if value != "default-value" {
		t.Errorf("expected 'default-value', got %q", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback bool
		expected bool
	}{
		{"true value", "true", false, true},
		{"false value", "false", true, false},
		{"True value", "True", false, true},
		{"FALSE value", "FALSE", true, false},
		{"invalid value", "invalid", true, true},
		{"missing key", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
				defer os.Unsetenv("TEST_BOOL")
			} else {
				os.Unsetenv("TEST_BOOL")
			}

			result := getEnvAsBool("TEST_BOOL", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback int
		expected int
	}{
		{"valid int", "123", 0, 123},
		{"zero", "0", 999, 0},
		{"negative", "-10", 0, -10},
		{"invalid value", "not-a-number", 42, 42},
		{"missing key", "", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_INT", tt.envValue)
				defer os.Unsetenv("TEST_INT")
			} else {
				os.Unsetenv("TEST_INT")
			}

			result := getEnvAsInt("TEST_INT", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	t.Setenv("TEST_INT64", " 9007199254740993 ")
	if got := getEnvAsInt64("TEST_INT64", 1); got != 9007199254740993 {
		t.Errorf("expected 9007199254740993, got %d", got)
	}

	t.Setenv("TEST_INT64", "12.5")
	if got := getEnvAsInt64("TEST_INT64", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
}

func TestFirstEnv(t *testing.T) {
	clearEnv(t, "TEST_FIRST_A", "TEST_FIRST_B")
	if got := firstEnv("TEST_FIRST_A", "TEST_FIRST_B"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}

	t.Setenv("TEST_FIRST_A", "  ")
	t.Setenv("TEST_FIRST_B", "b")
	if got := firstEnv("TEST_FIRST_A", "TEST_FIRST_B"); got != "b" {
		t.Errorf("expected blank value to be skipped, got %q", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback time.Duration
		expected time.Duration
	}{
		{"valid duration", "10s", 0, 10 * time.Second},
		{"minutes", "5m", 0, 5 * time.Minute},
		{"hours", "2h", 0, 2 * time.Hour},
		{"invalid value", "not-a-duration", 30 * time.Second, 30 * time.Second},
		{"empty value", "", 30 * time.Second, 30 * time.Second},
		{"missing key", "", 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_DURATION", tt.envValue)
				defer os.Unsetenv("TEST_DURATION")
			} else {
				os.Unsetenv("TEST_DURATION")
			}

			result := getEnvAsDuration("TEST_DURATION", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsCSV(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback []string
		expected []string
	}{
		{
			name:     "single value",
			envValue: "value1",
			fallback: []string{"default"},
			expected: []string{"value1"},
		},
		{
			name:     "multiple values",
			envValue: "value1,value2,value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "with spaces",
			envValue: "value1, value2 , value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "empty values filtered",
			envValue: "value1,,value2, ,value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "empty string",
			envValue: "",
			fallback: []string{"default"},
			expected: []string{"default"},
		},
		{
			name:     "only spaces",
			envValue: " , , ",
			fallback: []string{"default"},
			expected: []string{"default"},
		},
		{
			name:     "missing key",
			envValue: "",
			fallback: []string{"default1", "default2"},
			expected: []string{"default1", "default2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_CSV", tt.envValue)
				defer os.Unsetenv("TEST_CSV")
			} else {
				os.Unsetenv("TEST_CSV")
			}

			result := getEnvAsCSV("TEST_CSV", tt.fallback)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d values, got %d", len(tt.expected), len(result))
				return
			}

			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("expected[%d] %q, got %q", i, expected, result[i])
				}
			}
		})
	}
}
