package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment. A .env
// file is honored when present, real environment variables win.
type Config struct {
	RPCURL          string
	ContractAddress string
	PrivateKeyHex   string
	ChainID         int64
	DatabasePath    string
	FaceModelURL    string
	MatchThreshold  float64
	CallTimeout     time.Duration
	ReconcileEvery  time.Duration
	LogFile         string
	ErrorFile       string
	LogLevel        string
	LogConsole      bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:          getEnv("RPC_URL", "http://localhost:7545"),
		ContractAddress: os.Getenv("VOTING_CONTRACT_ADDRESS"),
		PrivateKeyHex:   os.Getenv("ORACLE_PRIVATE_KEY"),
		DatabasePath:    getEnv("DATABASE_PATH", "persistent.db"),
		FaceModelURL:    getEnv("FACE_MODEL_URL", "http://localhost:8090"),
		LogFile:         os.Getenv("LOG_FILE"),
		ErrorFile:       os.Getenv("ERROR_LOG_FILE"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("VOTING_CONTRACT_ADDRESS is not set")
	}

	var err error
	if cfg.ChainID, err = getInt64("CHAIN_ID", 1337); err != nil {
		return nil, err
	}
	if cfg.MatchThreshold, err = getFloat("MATCH_THRESHOLD", 0.6); err != nil {
		return nil, err
	}
	if cfg.MatchThreshold <= 0 {
		return nil, fmt.Errorf("MATCH_THRESHOLD must be positive, got %v", cfg.MatchThreshold)
	}
	if cfg.CallTimeout, err = getDuration("CALL_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconcileEvery, err = getDuration("RECONCILE_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	cfg.LogConsole = getEnv("LOG_CONSOLE", "true") == "true"

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
