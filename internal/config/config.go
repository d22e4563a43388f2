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
	DataDir      string // Base directory for the circuits database (always absolute)
	Port         int
	LogLevel     string
	DevMode      bool
	MaxQubits    int // Largest supported qubit count (state size grows as 2^n)
	MaxGates     int // Largest supported gate sequence length
	MaxShots     int // Ceiling on measurement shot counts
	DefaultShots int // Shot count used when a request omits one
	CacheSize    int // Snapshot cache capacity (entries)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	// 1. Check BLOCH_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("BLOCH_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		Port:         getEnvAsInt("BLOCH_PORT", 8002),
		LogLevel:     getEnv("BLOCH_LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("BLOCH_DEV_MODE", false),
		MaxQubits:    getEnvAsInt("BLOCH_MAX_QUBITS", 8),
		MaxGates:     getEnvAsInt("BLOCH_MAX_GATES", 256),
		MaxShots:     getEnvAsInt("BLOCH_MAX_SHOTS", 4096),
		DefaultShots: getEnvAsInt("BLOCH_DEFAULT_SHOTS", 1024),
		CacheSize:    getEnvAsInt("BLOCH_CACHE_CAPACITY", 128),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.MaxQubits < 1 {
		return fmt.Errorf("BLOCH_MAX_QUBITS must be at least 1, got %d", c.MaxQubits)
	}
	if c.MaxShots < 1 {
		return fmt.Errorf("BLOCH_MAX_SHOTS must be at least 1, got %d", c.MaxShots)
	}
	if c.DefaultShots < 1 || c.DefaultShots > c.MaxShots {
		return fmt.Errorf("BLOCH_DEFAULT_SHOTS must be in [1, %d], got %d", c.MaxShots, c.DefaultShots)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("BLOCH_CACHE_CAPACITY must be at least 1, got %d", c.CacheSize)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
