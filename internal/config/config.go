package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Mixer           MixerConfig       `yaml:"mixer"`
	Surface         SurfaceConfig     `yaml:"surface"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Poll            PollConfig        `yaml:"poll"`
	Meters          MetersConfig      `yaml:"meters"`
	Retry           RetryConfig       `yaml:"retry"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Loop            LoopConfig        `yaml:"loop"`
	Settings        map[string]string `yaml:"settings"` // Seeded into the settings store when the key is missing
	Script          string            `yaml:"script"`   // Optional Lua file with extra buttons
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"`
}

// MixerConfig contains mixer connection settings
type MixerConfig struct {
	Driver       string   `yaml:"driver"` // "osc" or "simulate" (default: osc)
	Type         string   `yaml:"type"`   // Model for the simulated mixer (default: potato)
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Listen       string   `yaml:"listen"`        // Local address for replies (default: :0)
	LoginTimeout Duration `yaml:"login_timeout"` // Wait for the model reply (default: 3s)
	WriteRate    float64  `yaml:"write_rate"`    // Outbound messages per second (default: 200)
	QueueSize    int      `yaml:"queue_size"`    // Outbound queue size (default: 256)
}

// SurfaceConfig contains control surface settings
type SurfaceConfig struct {
	Driver  string           `yaml:"driver"` // "mackie" or "none" (default: mackie)
	InPort  string           `yaml:"in_port"`
	OutPort string           `yaml:"out_port"`
	Buttons map[string]uint8 `yaml:"buttons"` // Free-standing button name -> note number
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// PollConfig contains mixer polling settings
type PollConfig struct {
	Interval Duration `yaml:"interval"` // Dirty check interval (default: 50ms)
	Watchdog Duration `yaml:"watchdog"` // Connection check interval (default: 1s)
}

// MetersConfig contains level meter settings
type MetersConfig struct {
	Disabled bool     `yaml:"disabled"`
	Interval Duration `yaml:"interval"` // default: 100ms
}

// RetryConfig contains connect retry settings
type RetryConfig struct {
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // Minimum backoff between attempts (default: 1s)
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // Maximum backoff between attempts (default: 2m)
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // Backoff multiplier (default: 2.0)
	MaxReconnects   int      `yaml:"max_reconnects"`    // Max attempts, 0 = infinite (default: 0)
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoopConfig contains event loop settings
type LoopConfig struct {
	QueueSize int `yaml:"queue_size"` // default: 256
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration data and applies defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./mixd.sqlite"
	}

	// Mixer defaults
	if cfg.Mixer.Driver == "" {
		cfg.Mixer.Driver = "osc"
	}
	if cfg.Mixer.Type == "" {
		cfg.Mixer.Type = "potato"
	}
	if cfg.Mixer.Host == "" {
		cfg.Mixer.Host = "127.0.0.1"
	}
	if cfg.Mixer.Port == 0 {
		cfg.Mixer.Port = 10023
	}
	if cfg.Mixer.Listen == "" {
		cfg.Mixer.Listen = ":0"
	}
	if cfg.Mixer.LoginTimeout == 0 {
		cfg.Mixer.LoginTimeout = Duration(3 * time.Second)
	}
	if cfg.Mixer.WriteRate == 0 {
		cfg.Mixer.WriteRate = 200
	}
	if cfg.Mixer.QueueSize == 0 {
		cfg.Mixer.QueueSize = 256
	}

	if cfg.Surface.Driver == "" {
		cfg.Surface.Driver = "mackie"
	}

	// Scheduler defaults
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = Duration(50 * time.Millisecond)
	}
	if cfg.Poll.Watchdog == 0 {
		cfg.Poll.Watchdog = Duration(1 * time.Second)
	}
	if cfg.Meters.Interval == 0 {
		cfg.Meters.Interval = Duration(100 * time.Millisecond)
	}

	// Retry defaults
	if cfg.Retry.MinRetryBackoff == 0 {
		cfg.Retry.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Retry.MaxRetryBackoff == 0 {
		cfg.Retry.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if cfg.Retry.RetryMultiplier == 0 {
		cfg.Retry.RetryMultiplier = 2.0
	}
	// MaxReconnects defaults to 0 (infinite), no need to set

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	if cfg.Loop.QueueSize == 0 {
		cfg.Loop.QueueSize = 256
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
