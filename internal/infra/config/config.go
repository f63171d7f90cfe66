package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Admission modes for the queue manager.
const (
	AdmissionSemaphore = "semaphore"
	AdmissionPolling   = "polling"
)

// Config is the top-level application configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Queue         QueueConfig         `yaml:"queue"`
	Scraper       ScraperConfig       `yaml:"scraper"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Logger        LoggerConfig        `yaml:"logger"`
	Tracer        TracerConfig        `yaml:"tracer"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// QueueConfig holds admission-control settings.
type QueueConfig struct {
	// Admission selects the slot-acquisition mechanism: "semaphore"
	// (blocking atomic acquire, default) or "polling" (can_process /
	// start_processing with a fixed-interval busy wait).
	Admission string `yaml:"admission"`
	// PollInterval is the busy-wait interval in polling mode.
	PollInterval time.Duration `yaml:"poll_interval"`
	// ProcessingDeadline bounds how long an item may stay in the
	// processing state before the reconciliation sweep fails it.
	ProcessingDeadline time.Duration `yaml:"processing_deadline"`
}

// ScraperConfig holds web-scraper settings.
type ScraperConfig struct {
	UserAgent         string        `yaml:"user_agent"`
	MaxChars          int           `yaml:"max_chars"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// NotificationsConfig holds optional notification forwarding surfaces.
// Notifications are always persisted; surfaces are best-effort extras.
type NotificationsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack incoming-webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// SchedulerConfig holds maintenance-task schedules. Each schedule is a cron
// expression or a duration string; empty disables the task.
type SchedulerConfig struct {
	QueueReconcile string `yaml:"queue_reconcile"`
	QueueCleanup   string `yaml:"queue_cleanup"`
	ModelRefresh   string `yaml:"model_refresh"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "launchdock.db"},
		Queue: QueueConfig{
			Admission:          AdmissionSemaphore,
			PollInterval:       100 * time.Millisecond,
			ProcessingDeadline: 10 * time.Minute,
		},
		Scraper: ScraperConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MaxChars:          32000,
			RequestsPerSecond: 1,
			Timeout:           30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			QueueReconcile: "1m",
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
	}
}

// Load reads a YAML config file, applying defaults for absent fields.
// A missing file is not an error: defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.Queue.Admission {
	case AdmissionSemaphore, AdmissionPolling:
	default:
		return fmt.Errorf("config: unknown queue admission mode %q", c.Queue.Admission)
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("config: queue poll_interval must be positive")
	}
	if c.Queue.ProcessingDeadline <= 0 {
		return fmt.Errorf("config: queue processing_deadline must be positive")
	}
	if c.Scraper.MaxChars <= 0 {
		return fmt.Errorf("config: scraper max_chars must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database path is required")
	}
	return nil
}
