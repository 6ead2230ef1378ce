package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App      AppSettings
	HTTP     HTTPSettings
	Auth     AuthSettings
	Log      LogSettings
	Database DatabaseSettings
	Audit    AuditSettings
	Siigo    SiigoSettings
	Cache    CacheSettings
	Metrics  MetricsSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration // Upper bound for one inbound request, retries included
}

type AuthSettings struct {
	Enabled     bool
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Enabled reports whether a database was configured. Without one the audit trail is off.
func (d DatabaseSettings) Enabled() bool {
	return d.Host != "" && d.Database != ""
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// SiigoSettings configures the Siigo API integration. Credentials may be empty at
// startup; the first token request reports which ones are missing.
type SiigoSettings struct {
	BaseURL            string
	AuthURL            string
	Username           string
	AccessKey          string
	PartnerID          string
	APITimeout         time.Duration // Timeout of one HTTP exchange with Siigo
	OperationTimeout   time.Duration // Timeout of one logical call, retries included
	AuthRateLimitPause time.Duration
	MaxConcurrent      int
	RateLimitRPS       int
	PurchaseDocumentID int64
	DefaultPaymentID   int64
	// Endpoint overrides, relative to BaseURL or absolute
	PurchasesPath      string
	PurchasesCreateURL string
	VouchersPath       string
}

type CacheSettings struct {
	CatalogTTL    time.Duration
	RedisAddr     string // Empty means in-memory cache
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type MetricsSettings struct {
	Enabled bool
	Path    string
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env file values.
func Load() (AppConfig, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "ms_siigo_gateway"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 75*time.Second),
		},
		Auth: AuthSettings{
			Enabled:     getEnvAsBool("AUTH_ENABLED", true),
			IssuerURI:   strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:   strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew:   getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health", "/metrics"}),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            strings.TrimSpace(os.Getenv("DB_HOST")),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "ms_siigo_gateway"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		Siigo: SiigoSettings{
			BaseURL:            getEnv("SIIGO_BASE_URL", "https://api.siigo.com/v1"),
			AuthURL:            getEnv("SIIGO_AUTH_URL", "https://api.siigo.com/auth"),
			Username:           strings.TrimSpace(os.Getenv("SIIGO_USERNAME")),
			AccessKey:          strings.TrimSpace(os.Getenv("SIIGO_ACCESS_KEY")),
			PartnerID:          strings.TrimSpace(os.Getenv("SIIGO_PARTNER_ID")),
			APITimeout:         getEnvAsDuration("SIIGO_API_TIMEOUT", 30*time.Second),
			OperationTimeout:   getEnvAsDuration("SIIGO_OPERATION_TIMEOUT", 60*time.Second),
			AuthRateLimitPause: getEnvAsDuration("SIIGO_AUTH_RATE_LIMIT_PAUSE", 1200*time.Millisecond),
			MaxConcurrent:      getEnvAsInt("SIIGO_MAX_CONCURRENT_REQUESTS", 10),
			RateLimitRPS:       getEnvAsInt("SIIGO_RATE_LIMIT_RPS", 10),
			PurchaseDocumentID: getEnvAsInt64("SIIGO_PURCHASE_DOCUMENT_ID", 7291),
			DefaultPaymentID:   getEnvAsInt64("SIIGO_DEFAULT_PAYMENT_ID", 8467),
			PurchasesPath:      firstEnv("SIIGO_PURCHASES_PATH", "COMPRAS_URL"),
			PurchasesCreateURL: strings.TrimSpace(os.Getenv("SIIGO_PURCHASES_CREATE_URL")),
			VouchersPath:       strings.TrimSpace(os.Getenv("SIIGO_VOUCHERS_PATH")),
		},
		Cache: CacheSettings{
			CatalogTTL:    getEnvAsDuration("CACHE_CATALOG_TTL", 10*time.Minute),
			RedisAddr:     strings.TrimSpace(os.Getenv("CACHE_REDIS_ADDR")),
			RedisPassword: os.Getenv("CACHE_REDIS_PASSWORD"),
			RedisDB:       getEnvAsInt("CACHE_REDIS_DB", 0),
			RedisPrefix:   getEnv("CACHE_REDIS_PREFIX", "siigo-gateway:"),
		},
		Metrics: MetricsSettings{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Siigo.BaseURL == "" {
		return cfg, errors.New("invalid config: SIIGO_BASE_URL cannot be empty")
	}
	if cfg.Siigo.AuthURL == "" {
		return cfg, errors.New("invalid config: SIIGO_AUTH_URL cannot be empty")
	}
	if cfg.Siigo.MaxConcurrent < 0 {
		return cfg, errors.New("invalid config: SIIGO_MAX_CONCURRENT_REQUESTS cannot be negative")
	}
	if cfg.Siigo.RateLimitRPS < 0 {
		return cfg, errors.New("invalid config: SIIGO_RATE_LIMIT_RPS cannot be negative")
	}
	if cfg.Siigo.PurchaseDocumentID <= 0 {
		return cfg, errors.New("invalid config: SIIGO_PURCHASE_DOCUMENT_ID must be greater than 0")
	}
	if cfg.Siigo.DefaultPaymentID <= 0 {
		return cfg, errors.New("invalid config: SIIGO_DEFAULT_PAYMENT_ID must be greater than 0")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return cfg, errors.New("invalid config: METRICS_PATH must start with '/'")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return cfg, errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return cfg, errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	}

	return cfg, nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
