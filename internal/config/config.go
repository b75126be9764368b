package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		QuickCount       int    `yaml:"quickCount"`
		TimedCount       int    `yaml:"timedCount"`
		TimedBudget      string `yaml:"timedBudget"`
		AutoAdvanceDelay string `yaml:"autoAdvanceDelay"`
		RecordTimeout    string `yaml:"recordTimeout"`
		CacheTTL         string `yaml:"cacheTTL"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// CountOr returns n unless it is non-positive, then the fallback.
func CountOr(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
