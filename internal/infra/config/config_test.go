package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Queue.Admission != AdmissionSemaphore {
		t.Errorf("default admission = %q", cfg.Queue.Admission)
	}
	if cfg.Scraper.MaxChars != 32000 {
		t.Errorf("default max_chars = %d", cfg.Scraper.MaxChars)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "launchdock.db" {
		t.Errorf("path = %q", cfg.Database.Path)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  path: /tmp/other.db
queue:
  admission: polling
  poll_interval: 50ms
  processing_deadline: 2m
logger:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("path = %q", cfg.Database.Path)
	}
	if cfg.Queue.Admission != AdmissionPolling {
		t.Errorf("admission = %q", cfg.Queue.Admission)
	}
	if cfg.Queue.PollInterval != 50*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.Queue.PollInterval)
	}
	if cfg.Queue.ProcessingDeadline != 2*time.Minute {
		t.Errorf("processing_deadline = %v", cfg.Queue.ProcessingDeadline)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("logger format = %q", cfg.Logger.Format)
	}
	// Untouched sections keep their defaults.
	if cfg.Scraper.MaxChars != 32000 {
		t.Errorf("max_chars = %d", cfg.Scraper.MaxChars)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Queue.Admission = "lottery" },
		func(c *Config) { c.Queue.PollInterval = 0 },
		func(c *Config) { c.Queue.ProcessingDeadline = -time.Second },
		func(c *Config) { c.Scraper.MaxChars = 0 },
		func(c *Config) { c.Database.Path = "" },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("queue: ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed YAML accepted")
	}
}
