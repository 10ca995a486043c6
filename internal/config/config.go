package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath            = "./listprice.db"
	defaultPort              = "8080"
	defaultEnv               = "development"
	defaultLogLevel          = "info"
	defaultStorageQuotaBytes = 5 << 20
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port              string
	DBPath            string
	Env               string
	LogLevel          string
	StorageQuotaBytes int64
	SeedExamples      bool
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || strings.EqualFold(c.Env, defaultEnv) || strings.EqualFold(c.Env, "dev")
}

// Load reads environment variables and returns a populated Config.
func Load() (Config, error) {
	// Best-effort: a missing .env is fine, production injects real variables.
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:              os.Getenv("PORT"),
		DBPath:            os.Getenv("DB_PATH"),
		Env:               os.Getenv("ENV"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		StorageQuotaBytes: defaultStorageQuotaBytes,
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if raw := os.Getenv("STORAGE_QUOTA_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("parse STORAGE_QUOTA_BYTES %q: must be a non-negative integer", raw)
		}
		cfg.StorageQuotaBytes = n
	}

	if raw := os.Getenv("SEED_EXAMPLES"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse SEED_EXAMPLES %q: %w", raw, err)
		}
		cfg.SeedExamples = v
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win over the file.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
