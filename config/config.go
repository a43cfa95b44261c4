package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Taxonomy  TaxonomyConfig
	Resolver  ResolverConfig
	Identity  IdentityConfig
	Pipeline  PipelineConfig
	Store     StoreConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// TaxonomyConfig locates the fixed category vocabulary.
type TaxonomyConfig struct {
	// Path is the vocabulary file, one category per line.
	Path string // default: "data/taxonomy/categories.txt"
}

// ResolverConfig controls the external semantic-resolution service.
type ResolverConfig struct {
	BaseURL string // default: "https://api.openai.com/v1"
	APIKey  string
	Model   string        // default: "gpt-4o-mini"
	Timeout time.Duration // default: 60s
}

// IdentityConfig holds the matching thresholds and tier weights for the
// identity resolver. All values are externally configurable; invalid values
// are rejected at startup, never silently ignored.
type IdentityConfig struct {
	// MatchThreshold is the Tier 2 score above which a pair matches.
	MatchThreshold float64 // default: 0.62

	// TitleWeight and BrandWeight combine the Tier 2 similarities.
	TitleWeight float64 // default: 0.75
	BrandWeight float64 // default: 0.25

	// GTINConfidenceFloor is the minimum confidence for a Tier 1 match.
	GTINConfidenceFloor float64 // default: 0.95
}

// Validate rejects misconfigured thresholds.
func (c IdentityConfig) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold >= 1 {
		return fmt.Errorf("identity match threshold %v out of range (0, 1)", c.MatchThreshold)
	}
	if c.TitleWeight < 0 || c.BrandWeight < 0 || c.TitleWeight+c.BrandWeight <= 0 {
		return fmt.Errorf("identity tier weights %v/%v must be non-negative with a positive sum", c.TitleWeight, c.BrandWeight)
	}
	if c.GTINConfidenceFloor < 0 || c.GTINConfidenceFloor > 1 {
		return fmt.Errorf("identity GTIN confidence floor %v out of range [0, 1]", c.GTINConfidenceFloor)
	}
	return nil
}

// PipelineConfig controls batch extraction.
type PipelineConfig struct {
	// MaxConcurrent bounds concurrent per-page pipelines during seeding.
	MaxConcurrent int // default: 5
}

// StoreConfig locates the on-disk product store and page corpus.
type StoreConfig struct {
	// ProductsDir is where product JSON records are written/read.
	ProductsDir string // default: "data/products"

	// CorpusDir holds raw HTML pages plus the pages.json manifest.
	CorpusDir string // default: "data/pages"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SKUFORGE_HOST", "0.0.0.0"),
			Port: envIntOr("SKUFORGE_PORT", 8080),
			Mode: envOr("SKUFORGE_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SKUFORGE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SKUFORGE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SKUFORGE_RATE_RPS", 5.0),
			Burst:             envIntOr("SKUFORGE_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("SKUFORGE_LOG_LEVEL", "info"),
			Format: envOr("SKUFORGE_LOG_FORMAT", "json"),
		},
		Taxonomy: TaxonomyConfig{
			Path: envOr("SKUFORGE_TAXONOMY_PATH", "data/taxonomy/categories.txt"),
		},
		Resolver: ResolverConfig{
			BaseURL: envOr("SKUFORGE_RESOLVER_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("SKUFORGE_RESOLVER_API_KEY"),
			Model:   envOr("SKUFORGE_RESOLVER_MODEL", "gpt-4o-mini"),
			Timeout: envDurationOr("SKUFORGE_RESOLVER_TIMEOUT", 60*time.Second),
		},
		Identity: IdentityConfig{
			MatchThreshold:      envFloatOr("SKUFORGE_IDENTITY_MATCH_THRESHOLD", 0.62),
			TitleWeight:         envFloatOr("SKUFORGE_IDENTITY_TITLE_WEIGHT", 0.75),
			BrandWeight:         envFloatOr("SKUFORGE_IDENTITY_BRAND_WEIGHT", 0.25),
			GTINConfidenceFloor: envFloatOr("SKUFORGE_IDENTITY_GTIN_FLOOR", 0.95),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent: envIntOr("SKUFORGE_MAX_CONCURRENT", 5),
		},
		Store: StoreConfig{
			ProductsDir: envOr("SKUFORGE_PRODUCTS_DIR", "data/products"),
			CorpusDir:   envOr("SKUFORGE_CORPUS_DIR", "data/pages"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
