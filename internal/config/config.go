// Package config loads the YAML configuration file the CLI commands
// read at startup, with individual fields overridable by environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the CLI commands need: store connection
// strings, scrape tuning, and the API bind address.
type Config struct {
	DatabaseURL       string  `yaml:"database_url"`
	MeilisearchURL    string  `yaml:"meilisearch_url"`
	MeilisearchKey    string  `yaml:"meilisearch_key"`
	LedgerPath        string  `yaml:"ledger_path"`
	ProxyURL          string  `yaml:"proxy_url"`
	ScrapeConcurrency int     `yaml:"scrape_concurrency"`
	ScrapeRatePerSec  float64 `yaml:"scrape_rate_per_second"`
	APIAddr           string  `yaml:"api_addr"`
	JWTSigningKey     string  `yaml:"jwt_signing_key"`
}

// Load reads path (if it exists) as a YAML base configuration, then
// applies environment-variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		LedgerPath: "progress.json",
		APIAddr:    ":8080",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MEILISEARCH_URL"); v != "" {
		cfg.MeilisearchURL = v
	}
	if v := os.Getenv("MEILISEARCH_KEY"); v != "" {
		cfg.MeilisearchKey = v
	}
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		cfg.LedgerPath = v
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.ProxyURL = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("JWT_SIGNING_KEY"); v != "" {
		cfg.JWTSigningKey = v
	}
	if v := os.Getenv("SCRAPE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ScrapeConcurrency = n
		}
	}
	if v := os.Getenv("SCRAPE_RATE_PER_SECOND"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ScrapeRatePerSec = n
		}
	}
}
