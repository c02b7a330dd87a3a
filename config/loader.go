package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const envPrefix = "CATALOG_WATCH_"

// Load reads a YAML file over DefaultConfig. Environment variables referenced
// as ${VAR} are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with CATALOG_WATCH_* variables.
func ApplyEnv(cfg *Config) error {
	if v, ok := EnvString(envPrefix + "BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := EnvString(envPrefix + "PROXY_FILE"); ok {
		cfg.ProxyFile = v
	}
	if v, ok := EnvString(envPrefix + "OUTPUT"); ok {
		cfg.OutputFile = v
	}
	if v, ok := EnvString(envPrefix + "STATUS_ADDR"); ok {
		cfg.StatusAddr = v
	}
	if v, ok := EnvString(envPrefix + "LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok, err := EnvInt(envPrefix + "PER_PAGE"); err != nil {
		return err
	} else if ok {
		cfg.PerPage = v
	}
	if v, ok, err := EnvDuration(envPrefix + "INTERVAL"); err != nil {
		return err
	} else if ok {
		cfg.Interval = v
	}
	if v, ok, err := EnvDuration(envPrefix + "RATE_LIMIT_COOLDOWN"); err != nil {
		return err
	} else if ok {
		cfg.RateLimitCooldown = v
	}
	return nil
}

// EnvString returns the value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// EnvInt parses key as an integer when set.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

// EnvDuration parses key as a time.Duration when set.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}
