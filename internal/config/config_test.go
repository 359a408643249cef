package config

import (
	"os"
	"path/filepath"
	"testing"
)

var knownEnvVars = []string{
	"CONFIG_FILE", "HTTP_ADDR", "METRICS_ADDR",
	"STORAGE_DRIVER", "STORAGE_DIR", "SQLITE_PATH",
	"MIC_PROVIDER", "SPEECH_PROVIDER", "SPEECH_LOCALE",
	"SIGN_IN_LATENCY_MS", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range knownEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr ':8080', got %s", cfg.Service.HTTPAddr)
	}
	if cfg.Service.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr ':9090', got %s", cfg.Service.MetricsAddr)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("expected default storage driver 'file', got %s", cfg.Storage.Driver)
	}
	if cfg.Mic.Provider != "mock" {
		t.Errorf("expected default mic provider 'mock', got %s", cfg.Mic.Provider)
	}
	if cfg.Speech.Provider != "mock" {
		t.Errorf("expected default speech provider 'mock', got %s", cfg.Speech.Provider)
	}
	if cfg.Speech.Locale != "en-US" {
		t.Errorf("expected default locale 'en-US', got %s", cfg.Speech.Locale)
	}
	if cfg.Identity.SignInLatencyMs != 600 {
		t.Errorf("expected default sign-in latency 600, got %d", cfg.Identity.SignInLatencyMs)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SPEECH_PROVIDER", "none")
	t.Setenv("SPEECH_LOCALE", "de-DE")
	t.Setenv("SIGN_IN_LATENCY_MS", "0")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.HTTPAddr != ":9999" {
		t.Errorf("expected ':9999', got %s", cfg.Service.HTTPAddr)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected 'sqlite', got %s", cfg.Storage.Driver)
	}
	if cfg.Speech.Provider != "none" {
		t.Errorf("expected 'none', got %s", cfg.Speech.Provider)
	}
	if cfg.Speech.Locale != "de-DE" {
		t.Errorf("expected 'de-DE', got %s", cfg.Speech.Locale)
	}
	if cfg.Identity.SignInLatencyMs != 0 {
		t.Errorf("expected 0, got %d", cfg.Identity.SignInLatencyMs)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_YAMLFileUnderEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "voicevault.yaml")
	content := []byte(`
service:
  httpAddr: ":7070"
storage:
  driver: memory
speech:
  locale: fr-FR
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	// Env still wins over the file.
	t.Setenv("STORAGE_DRIVER", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.HTTPAddr != ":7070" {
		t.Errorf("file value lost: got %s", cfg.Service.HTTPAddr)
	}
	if cfg.Speech.Locale != "fr-FR" {
		t.Errorf("file value lost: got %s", cfg.Speech.Locale)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("env should win over file: got %s", cfg.Storage.Driver)
	}
	// Untouched values keep their defaults.
	if cfg.Speech.Provider != "mock" {
		t.Errorf("default lost: got %s", cfg.Speech.Provider)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}
