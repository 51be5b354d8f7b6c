package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/savfrmda3/fomo-bot/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Portals  PortalsConfig  `mapstructure:"portals"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Bypass   BypassConfig   `mapstructure:"bypass"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Seen     SeenConfig     `mapstructure:"seen"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the audit trail.
// The bot runs fine without it; persistence of alert history is optional.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// PortalsConfig captures marketplace API connectivity.
type PortalsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	BatchSize      int           `mapstructure:"batch_size"`
	MaxRecords     int           `mapstructure:"max_records"`
	Sort           string        `mapstructure:"sort"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSec     float64       `mapstructure:"rate_per_sec"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AuthConfig holds the credential material and the session endpoint.
type AuthConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	SessionData    string        `mapstructure:"session_data"`
	BotSecret      string        `mapstructure:"bot_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BypassConfig controls the headless warm-up pass.
type BypassConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// FilterConfig defines the acceptance thresholds.
type FilterConfig struct {
	MinDropPercent  float64       `mapstructure:"min_drop_percent"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
}

// MonitorConfig governs the supervisor's pacing and backoff.
type MonitorConfig struct {
	CheckIntervalMin time.Duration `mapstructure:"check_interval_min"`
	CheckIntervalMax time.Duration `mapstructure:"check_interval_max"`
	AuthBackoff      time.Duration `mapstructure:"auth_backoff"`
	CycleBackoff     time.Duration `mapstructure:"cycle_backoff"`
	FallbackDelay    time.Duration `mapstructure:"fallback_delay"`
}

// SeenConfig controls the dedup store and its snapshot file.
type SeenConfig struct {
	Path                string `mapstructure:"path"`
	RetentionMultiplier int    `mapstructure:"retention_multiplier"`
}

// AlertingConfig defines alert delivery and outbound pacing.
type AlertingConfig struct {
	MessageDelayMin time.Duration  `mapstructure:"message_delay_min"`
	MessageDelayMax time.Duration  `mapstructure:"message_delay_max"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Channel  string `mapstructure:"channel"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FOMOBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fomo-bot")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("portals.base_url", "https://portals-market.com/api")
	v.SetDefault("portals.batch_size", 200)
	v.SetDefault("portals.max_records", 5000)
	v.SetDefault("portals.sort", "price asc")
	v.SetDefault("portals.request_timeout", "15s")
	v.SetDefault("portals.rate_per_sec", 4.0)
	v.SetDefault("portals.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36")

	v.SetDefault("auth.base_url", "https://portals-market.com/api")
	v.SetDefault("auth.request_timeout", "15s")

	v.SetDefault("bypass.enabled", false)
	v.SetDefault("bypass.url", "https://portals-market.com")
	v.SetDefault("bypass.timeout", "45s")

	v.SetDefault("filter.min_drop_percent", 10.0)
	v.SetDefault("filter.freshness_window", "60s")

	v.SetDefault("monitor.check_interval_min", "60s")
	v.SetDefault("monitor.check_interval_max", "120s")
	v.SetDefault("monitor.auth_backoff", "30s")
	v.SetDefault("monitor.cycle_backoff", "30s")
	v.SetDefault("monitor.fallback_delay", "5s")

	v.SetDefault("seen.path", "seen.json")
	v.SetDefault("seen.retention_multiplier", 10)

	v.SetDefault("alerting.message_delay_min", "500ms")
	v.SetDefault("alerting.message_delay_max", "1300ms")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x666f6d6f))
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Filter.MinDropPercent < 0 {
		return fmt.Errorf("filter.min_drop_percent cannot be negative")
	}
	if c.Filter.FreshnessWindow <= 0 {
		return fmt.Errorf("filter.freshness_window must be greater than zero")
	}
	if c.Portals.BatchSize <= 0 {
		return fmt.Errorf("portals.batch_size must be greater than zero")
	}
	if c.Portals.MaxRecords < c.Portals.BatchSize {
		return fmt.Errorf("portals.max_records must be at least portals.batch_size")
	}
	if c.Monitor.CheckIntervalMin <= 0 || c.Monitor.CheckIntervalMax < c.Monitor.CheckIntervalMin {
		return fmt.Errorf("monitor.check_interval bounds are invalid")
	}
	if c.Alerting.MessageDelayMax < c.Alerting.MessageDelayMin {
		return fmt.Errorf("alerting.message_delay bounds are invalid")
	}
	if c.Seen.RetentionMultiplier < 1 {
		return fmt.Errorf("seen.retention_multiplier must be at least 1")
	}
	if c.Seen.Path == "" {
		return fmt.Errorf("seen.path 必须配置")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// SeenRetention derives the dedup store eviction horizon.
func (c *Config) SeenRetention() time.Duration {
	return time.Duration(c.Seen.RetentionMultiplier) * c.Filter.FreshnessWindow
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
