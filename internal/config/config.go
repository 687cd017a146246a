// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Upstream services
	WrapperURL     string        // Wrapper service that produces the served (noisy) answer
	WrapperTimeout time.Duration // Per-request forward timeout
	DetectorURL    string        // Detector service that recomputes suspicion scores

	// Detector scheduler
	DetectorInterval time.Duration

	// Blockchain settings (threat notarization)
	RPCURL         string
	ChainID        int64
	PrivateKey     string // Hex-encoded, with or without 0x prefix
	ThreatContract string // ThreatChain contract address

	// Threat mirror
	ThreatRecordsPath string // Local append-only JSON mirror of confirmed records
	NotaryDedup       bool   // Skip notarization when the digest is already mirrored

	// Security
	RateLimitRPM int

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultWrapperURL        = "http://localhost:8002/get_noisy_response"
	DefaultDetectorURL       = "http://localhost:8001/run_analysis"
	DefaultWrapperTimeout    = 10 * time.Second
	DefaultDetectorInterval  = 60 * time.Second
	DefaultRPCURL            = "http://127.0.0.1:8545"
	DefaultChainID           = 31337 // local hardhat node
	DefaultThreatRecordsPath = "threat_records.json"
	DefaultRateLimit         = 300
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:       os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		WrapperURL:        getEnv("WRAPPER_URL", DefaultWrapperURL),
		WrapperTimeout:    getEnvSeconds("WRAPPER_TIMEOUT_SECS", DefaultWrapperTimeout),
		DetectorURL:       getEnv("DETECTOR_URL", DefaultDetectorURL),
		DetectorInterval:  getEnvSeconds("DETECTOR_INTERVAL_SECS", DefaultDetectorInterval),
		RPCURL:            getEnv("RPC_URL", DefaultRPCURL),
		ChainID:           getEnvInt64("CHAIN_ID", DefaultChainID),
		PrivateKey:        os.Getenv("PRIVATE_KEY"), // Optional, notarization disabled without it
		ThreatContract:    os.Getenv("THREAT_CONTRACT"),
		ThreatRecordsPath: getEnv("THREAT_RECORDS_PATH", DefaultThreatRecordsPath),
		NotaryDedup:       getEnvBool("NOTARY_DEDUP", false),
		RateLimitRPM:      int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency.
// Chain settings are optional as a group: either notarization is fully
// configured or it is disabled.
func (c *Config) Validate() error {
	if c.WrapperURL == "" {
		return fmt.Errorf("WRAPPER_URL is required")
	}
	if c.DetectorURL == "" {
		return fmt.Errorf("DETECTOR_URL is required")
	}
	if c.WrapperTimeout <= 0 {
		return fmt.Errorf("WRAPPER_TIMEOUT_SECS must be positive")
	}
	if c.DetectorInterval <= 0 {
		return fmt.Errorf("DETECTOR_INTERVAL_SECS must be positive")
	}

	if c.PrivateKey != "" {
		// Allow both with and without 0x prefix
		key := c.PrivateKey
		if len(key) == 66 && key[:2] == "0x" {
			key = key[2:]
		}
		if len(key) != 64 {
			return fmt.Errorf("PRIVATE_KEY must be 64 hex characters (with or without 0x prefix)")
		}
		if c.ThreatContract == "" {
			return fmt.Errorf("THREAT_CONTRACT is required when PRIVATE_KEY is set")
		}
		if c.RPCURL == "" {
			return fmt.Errorf("RPC_URL is required when PRIVATE_KEY is set")
		}
	}

	return nil
}

// NotaryEnabled reports whether on-chain notarization is configured.
func (c *Config) NotaryEnabled() bool {
	return c.PrivateKey != "" && c.ThreatContract != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
