package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-catalog-watch/models"
)

// Config holds watcher configuration.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	PerPage           int           `yaml:"per_page"`
	Order             string        `yaml:"order"`
	Interval          time.Duration `yaml:"interval"`
	Jitter            time.Duration `yaml:"jitter"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
	ProxyRetryDelay   time.Duration `yaml:"proxy_retry_delay"`
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	ProxyFile         string        `yaml:"proxy_file"`
	OutputFile        string        `yaml:"output_file"`
	OutputFormat      string        `yaml:"output_format"` // csv, json, or dual
	StatusAddr        string        `yaml:"status_addr"`
	RecentSize        int           `yaml:"recent_size"`
	LogLevel          string        `yaml:"log_level"` // debug, info, warn, error
	Verbose           bool          `yaml:"verbose"`
	Watches           []Watch       `yaml:"watches"`
}

// Watch names one filter set polled by its own poller.
type Watch struct {
	Name   string        `yaml:"name"`
	Filter models.Filter `yaml:"filter"`
}

// DefaultConfig returns conservative defaults for the public catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.vinted.fr",
		PerPage:           24,
		Order:             "newest_first",
		Interval:          10 * time.Second,
		Jitter:            2 * time.Second,
		RateLimitCooldown: 2 * time.Minute,
		ProxyRetryDelay:   500 * time.Millisecond,
		Timeout:           15 * time.Second,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		OutputFile:        "output/new_items.jsonl",
		OutputFormat:      "json",
		RecentSize:        200,
		LogLevel:          "info",
		Watches:           []Watch{{Name: "default"}},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.PerPage <= 0 {
		return fmt.Errorf("per page must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Jitter < 0 {
		return fmt.Errorf("jitter cannot be negative")
	}
	if c.RateLimitCooldown <= c.Interval {
		return fmt.Errorf("rate limit cooldown (%s) must exceed interval (%s)", c.RateLimitCooldown, c.Interval)
	}
	if c.ProxyRetryDelay < 0 {
		return fmt.Errorf("proxy retry delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.OutputFile != "" && c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.RecentSize < 0 {
		return fmt.Errorf("recent size cannot be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn, or error")
	}

	if len(c.Watches) == 0 {
		return fmt.Errorf("at least one watch is required")
	}
	names := make(map[string]struct{}, len(c.Watches))
	for i, w := range c.Watches {
		if w.Name == "" {
			return fmt.Errorf("watch %d: name cannot be empty", i)
		}
		if _, dup := names[w.Name]; dup {
			return fmt.Errorf("watch %q: duplicate name", w.Name)
		}
		names[w.Name] = struct{}{}

		f := w.Filter
		if f.PriceFrom != nil && *f.PriceFrom < 0 {
			return fmt.Errorf("watch %q: price_from cannot be negative", w.Name)
		}
		if f.PriceFrom != nil && f.PriceTo != nil && *f.PriceFrom > *f.PriceTo {
			return fmt.Errorf("watch %q: price_from cannot exceed price_to", w.Name)
		}
	}

	return nil
}
