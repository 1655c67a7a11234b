// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// Env names the deployment ("development", "production"). Defaults to
	// "development". Cookies are marked Secure outside development unless
	// COOKIE_SECURE says otherwise.
	Env string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// AutoMigrate applies the embedded migrations at start-up.
	AutoMigrate bool

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:3000"] (the site's dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	Auth    AuthConfig
	Storage StorageConfig

	// AMQPURL is the RabbitMQ broker. Empty runs a single instance with
	// purely local cache invalidation and no outbound events.
	AMQPURL string

	// CacheTTL bounds how long a read model may be served from memory.
	CacheTTL time.Duration

	// UploadConcurrency bounds parallel image uploads per request.
	UploadConcurrency int

	// MaxUploadBytes caps request bodies.
	MaxUploadBytes int64

	// AdminEmail and AdminPassword, when both set, are upserted as an admin
	// account at start-up.
	AdminEmail    string
	AdminPassword string
}

// AuthConfig holds the session token settings.
type AuthConfig struct {
	// JWTSecret signs access and refresh tokens. Required.
	JWTSecret    string
	AccessTTL    time.Duration
	SessionTTL   time.Duration
	CookieSecure bool
}

// StorageConfig describes the object storage bucket.
type StorageConfig struct {
	// Endpoint is host[:port] of the S3-compatible service. Required.
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or the
// first optional variable that does not parse.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		AMQPURL:     os.Getenv("AMQP_URL"),
		Storage: StorageConfig{
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    getEnv("STORAGE_BUCKET", "trip-images"),
			PublicURL: os.Getenv("STORAGE_PUBLIC_URL"),
		},
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	cfg.Storage.Endpoint = os.Getenv("STORAGE_ENDPOINT")
	if cfg.Storage.Endpoint == "" {
		missing = append(missing, "STORAGE_ENDPOINT")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	p := parser{}
	cfg.AutoMigrate = p.bool("AUTO_MIGRATE", false)
	cfg.Auth.CookieSecure = p.bool("COOKIE_SECURE", cfg.Env != "development")
	cfg.Auth.AccessTTL = p.duration("ACCESS_TOKEN_TTL", time.Hour)
	cfg.Auth.SessionTTL = p.duration("SESSION_TTL", 7*24*time.Hour)
	cfg.Storage.UseSSL = p.bool("STORAGE_USE_SSL", true)
	cfg.CacheTTL = p.duration("CACHE_TTL", time.Hour)
	cfg.UploadConcurrency = p.int("UPLOAD_CONCURRENCY", 4)
	cfg.MaxUploadBytes = int64(p.int("MAX_UPLOAD_BYTES", 32<<20))
	if p.err != nil {
		return Config{}, p.err
	}

	return cfg, nil
}

// parser reads typed optional variables, remembering the first failure so
// Load can check once at the end.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
