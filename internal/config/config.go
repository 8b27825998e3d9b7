// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Strategy parameters
	BenchmarkSymbol string  // Regime filter benchmark (default SPY)
	AnchorSymbol    string  // Fixed allocation instrument
	AnchorName      string  // Display name for the anchor instrument
	AnchorWeight    float64 // Fixed anchor allocation weight (default 0.30)
	TopN            int     // Number of ranked symbols to select (default 4)

	// Scheduling
	EnableAutoScheduling bool
	Timezone             string // IANA name, e.g. Europe/Paris

	// Backups (disabled unless endpoint + credentials are all set)
	Backup BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
type BackupConfig struct {
	Endpoint        string // e.g. https://<account>.r2.cloudflarestorage.com
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetainCount     int // number of snapshots to keep
}

// Enabled reports whether backups are fully configured.
func (b BackupConfig) Enabled() bool {
	return b.Endpoint != "" && b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("MOMENTOR_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8000),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		BenchmarkSymbol:      getEnv("BENCHMARK_SYMBOL", "SPY"),
		AnchorSymbol:         getEnv("ANCHOR_SYMBOL", "VUSA.AS"),
		AnchorName:           getEnv("ANCHOR_NAME", "Vanguard S&P 500 UCITS ETF"),
		AnchorWeight:         getEnvAsFloat("ANCHOR_WEIGHT", 0.30),
		TopN:                 getEnvAsInt("TOP_N", 4),
		EnableAutoScheduling: getEnvAsBool("ENABLE_AUTO_SCHEDULING", true),
		Timezone:             getEnv("TZ", "Europe/Paris"),
		Backup: BackupConfig{
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			RetainCount:     getEnvAsInt("BACKUP_RETAIN_COUNT", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.AnchorWeight <= 0 || c.AnchorWeight >= 1 {
		return fmt.Errorf("anchor weight must be in (0, 1), got %v", c.AnchorWeight)
	}
	if c.TopN < 1 {
		return fmt.Errorf("top N must be at least 1, got %d", c.TopN)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
