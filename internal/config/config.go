package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	StorePath string
	OutputDir string
	LogLevel  string

	PageSize  int
	BatchSize int

	SupplierAPIBaseURL   string
	SupplierAPIKey       string
	SupplierRateLimitRPS int
	SupplierTimeoutMs    int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		StorePath: getEnv("STORE_PATH", filepath.Join(cwd, "data", "inventory.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		PageSize:  getEnvInt("PAGE_SIZE", 1000),
		BatchSize: getEnvInt("BATCH_SIZE", 100),

		SupplierAPIBaseURL:   getEnv("SUPPLIER_API_BASE_URL", "https://api.supplier.example/v1"),
		SupplierAPIKey:       getEnv("SUPPLIER_API_KEY", ""),
		SupplierRateLimitRPS: getEnvInt("SUPPLIER_RATE_LIMIT_RPS", 5),
		SupplierTimeoutMs:    getEnvInt("SUPPLIER_TIMEOUT_MS", 30000),
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
