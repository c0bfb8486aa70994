package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPrintSecret is the print relay secret used when none is configured.
// Deployments are expected to override it.
const DefaultPrintSecret = "KPR2024SECRET"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Billing    BillingConfig    `yaml:"billing"`
	PrintRelay PrintRelayConfig `yaml:"print_relay"`
	Agent      AgentConfig      `yaml:"agent"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	Mode            string   `yaml:"mode"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	CORSOrigins     []string `yaml:"cors_origins"`
	PublicDir       string   `yaml:"public_dir"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// BillingConfig holds the billing defaults.
type BillingConfig struct {
	DefaultDailyRate string `yaml:"default_daily_rate"`
	Timezone         string `yaml:"timezone"`
}

// PrintRelayConfig holds the print queue configuration.
type PrintRelayConfig struct {
	Secret                 string `yaml:"secret"`
	RetentionDays          int    `yaml:"retention_days"`
	JanitorIntervalMinutes int    `yaml:"janitor_interval_minutes"`

	Retention       time.Duration `yaml:"-"`
	JanitorInterval time.Duration `yaml:"-"`
}

// AgentConfig holds the configuration of the receipt printing workstation.
type AgentConfig struct {
	ServerURL       string        `yaml:"server_url"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	SpoolDir        string        `yaml:"spool_dir"`
	PurgeEvery      int           `yaml:"purge_every"`
}

// LogConfig holds the logger configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path. An empty path skips the
// file and builds the configuration from the environment and defaults only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when nothing is supplied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	setString(&cfg.Server.Mode, "GIN_MODE")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DB_PATH")
	setString(&cfg.Billing.DefaultDailyRate, "DAILY_RATE")
	setString(&cfg.Billing.Timezone, "TIMEZONE")
	setString(&cfg.PrintRelay.Secret, "PRINT_SECRET")
	setString(&cfg.Agent.ServerURL, "AGENT_SERVER_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 20
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 40
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "kpr.db"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}

	if cfg.Billing.DefaultDailyRate == "" {
		cfg.Billing.DefaultDailyRate = "120"
	}
	if cfg.Billing.Timezone == "" {
		cfg.Billing.Timezone = "Asia/Kolkata"
	}

	if cfg.PrintRelay.Secret == "" {
		cfg.PrintRelay.Secret = DefaultPrintSecret
	}
	if cfg.PrintRelay.RetentionDays <= 0 {
		cfg.PrintRelay.RetentionDays = 7
	}
	cfg.PrintRelay.Retention = time.Duration(cfg.PrintRelay.RetentionDays) * 24 * time.Hour
	// A negative interval disables the janitor.
	if cfg.PrintRelay.JanitorIntervalMinutes == 0 {
		cfg.PrintRelay.JanitorIntervalMinutes = 60
	}
	if cfg.PrintRelay.JanitorIntervalMinutes > 0 {
		cfg.PrintRelay.JanitorInterval = time.Duration(cfg.PrintRelay.JanitorIntervalMinutes) * time.Minute
	}

	if cfg.Agent.ServerURL == "" {
		cfg.Agent.ServerURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Agent.IntervalSeconds <= 0 {
		cfg.Agent.IntervalSeconds = 3
	}
	cfg.Agent.Interval = time.Duration(cfg.Agent.IntervalSeconds) * time.Second
	if cfg.Agent.SpoolDir == "" {
		cfg.Agent.SpoolDir = "./spool"
	}
	if cfg.Agent.PurgeEvery <= 0 {
		cfg.Agent.PurgeEvery = 100
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
