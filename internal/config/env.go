package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides file values from the process environment.
// STORE_ID is a file path for sqlite/csv and a DSN for postgres.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("JOBWATCH_DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.App.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = strings.ToLower(v)
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := getenv("STORE_ID"); v != "" {
		if cfg.Store.Backend == "postgres" {
			cfg.Store.DSN = v
		} else {
			cfg.Store.Path = v
		}
	}
	if v := getenv("CREDENTIALS_FILE"); v != "" {
		cfg.Store.CredentialsFile = v
	}
	if v := getenv("SCHEDULE"); v != "" {
		cfg.Schedule.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := getenv("SCHEDULE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCHEDULE_INTERVAL: %w", err)
		}
		cfg.Schedule.Interval = d
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.Lock.RedisURL = v
	}
	return nil
}
