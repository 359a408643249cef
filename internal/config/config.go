// Package config loads service configuration. Defaults come first, an
// optional YAML file refines them, and environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Service struct {
		HTTPAddr    string `yaml:"httpAddr"`
		MetricsAddr string `yaml:"metricsAddr"`
	} `yaml:"service"`

	Storage struct {
		// Driver selects the persistence backend: file, sqlite, memory.
		Driver     string `yaml:"driver"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlitePath"`
	} `yaml:"storage"`

	Mic struct {
		// Provider selects the capture device: mock is the only one
		// shipped; real devices plug in behind the same interface.
		Provider string `yaml:"provider"`
	} `yaml:"mic"`

	Speech struct {
		// Provider selects the recognizer: mock, or none to model a
		// platform without recognition support.
		Provider string `yaml:"provider"`
		Locale   string `yaml:"locale"`
	} `yaml:"speech"`

	Identity struct {
		// SignInLatencyMs simulates the mocked provider's round trip.
		SignInLatencyMs int `yaml:"signInLatencyMs"`
	} `yaml:"identity"`

	Observability struct {
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
	} `yaml:"observability"`
}

// Load builds the configuration from defaults, the optional file named
// by CONFIG_FILE, and the environment, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Service.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.Service.HTTPAddr)
	cfg.Service.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.Service.MetricsAddr)
	cfg.Storage.Driver = envOrDefault("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Dir = envOrDefault("STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.SQLitePath = envOrDefault("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Mic.Provider = envOrDefault("MIC_PROVIDER", cfg.Mic.Provider)
	cfg.Speech.Provider = envOrDefault("SPEECH_PROVIDER", cfg.Speech.Provider)
	cfg.Speech.Locale = envOrDefault("SPEECH_LOCALE", cfg.Speech.Locale)
	cfg.Identity.SignInLatencyMs = envOrDefaultInt("SIGN_IN_LATENCY_MS", cfg.Identity.SignInLatencyMs)
	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Service.HTTPAddr = ":8080"
	cfg.Service.MetricsAddr = ":9090"
	cfg.Storage.Driver = "file"
	cfg.Storage.Dir = "./data"
	cfg.Storage.SQLitePath = "./data/voicevault.db"
	cfg.Mic.Provider = "mock"
	cfg.Speech.Provider = "mock"
	cfg.Speech.Locale = "en-US"
	cfg.Identity.SignInLatencyMs = 600
	cfg.Observability.LogLevel = "info"
	cfg.Observability.LogFormat = "json"
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
