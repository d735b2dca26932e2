package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Session storage backends
const (
	SessionStorageMongo  = "mongodb"
	SessionStorageMemory = "memory"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string
	Shopify  ShopifyConfig
	Storage  StorageConfig
	Redis    RedisConfig
	CORS     CORSConfig
}

type ShopifyConfig struct {
	APIKey           string
	APISecret        string
	Scopes           []string
	Host             string
	APIVersion       string
	PostAuthRedirect string
}

type StorageConfig struct {
	SessionStorage string
	MongoURI       string
	MongoDatabase  string
	EncryptionKey  string
}

type RedisConfig struct {
	URL      string
	DedupTTL time.Duration
	ClaimTTL time.Duration
	NonceTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// IsDevelopment reports whether APP_ENV selects development behaviour
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// Load reads configuration from the environment and validates it
func Load() (*Config, error) {
	dedupTTL, err := time.ParseDuration(getEnv("WEBHOOK_DEDUP_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_DEDUP_TTL: %w", err)
	}
	claimTTL, err := time.ParseDuration(getEnv("WEBHOOK_CLAIM_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_CLAIM_TTL: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Shopify: ShopifyConfig{
			APIKey:           os.Getenv("SHOPIFY_API_KEY"),
			APISecret:        os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:           splitList(getEnv("SCOPES", "read_products,write_products")),
			Host:             strings.TrimSuffix(getEnv("HOST", "http://localhost:8080"), "/"),
			APIVersion:       getEnv("SHOPIFY_API_VERSION", "2025-01"),
			PostAuthRedirect: os.Getenv("POST_AUTH_REDIRECT"),
		},
		Storage: StorageConfig{
			SessionStorage: strings.ToLower(getEnv("SESSION_STORAGE", SessionStorageMongo)),
			MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDatabase:  getEnv("MONGODB_DATABASE", "bundle_app"),
			EncryptionKey:  os.Getenv("ENCRYPTION_KEY"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			DedupTTL: dedupTTL,
			ClaimTTL: claimTTL,
			NonceTTL: 10 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "https://admin.shopify.com")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	var errs []error
	if c.Shopify.APIKey == "" {
		errs = append(errs, errors.New("SHOPIFY_API_KEY is required"))
	}
	if c.Shopify.APISecret == "" {
		errs = append(errs, errors.New("SHOPIFY_API_SECRET is required"))
	}
	if len(c.Shopify.Scopes) == 0 {
		errs = append(errs, errors.New("SCOPES must list at least one scope"))
	}
	if u, err := url.Parse(c.Shopify.Host); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("HOST must be an absolute URL, got %q", c.Shopify.Host))
	}
	switch c.Storage.SessionStorage {
	case SessionStorageMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for mongodb session storage"))
		}
	case SessionStorageMemory:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORAGE must be %q or %q, got %q", SessionStorageMongo, SessionStorageMemory, c.Storage.SessionStorage))
	}
	if c.Storage.EncryptionKey != "" && len(c.Storage.EncryptionKey) < 16 {
		errs = append(errs, errors.New("ENCRYPTION_KEY must be at least 16 characters"))
	}
	if c.Redis.DedupTTL <= 0 {
		errs = append(errs, errors.New("WEBHOOK_DEDUP_TTL must be positive"))
	}
	if c.Redis.ClaimTTL <= 0 {
		errs = append(errs, errors.New("WEBHOOK_CLAIM_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
