package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"racecard-watcher/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Source    SourceConfig    `mapstructure:"source"`
	Odds      OddsConfig      `mapstructure:"odds"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the watch cadence. HourlyMark is the minute of the
// hour at which hourly-watch fixtures fire; WatchStartHour is the local hour
// on the eve of a race day at which the odds window opens, CardWatchHour the
// hour on a declaration day at which the race-card window opens.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	AlignToClock   bool          `mapstructure:"align_to_clock"`
	StartupDelay   time.Duration `mapstructure:"startup_delay"`
	HourlyMark     int           `mapstructure:"hourly_mark"`
	WatchStartHour int           `mapstructure:"watch_start_hour"`
	CardWatchHour  int           `mapstructure:"card_watch_hour"`
}

// SourceConfig covers the racing site and the page renderer.
type SourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Headless       bool          `mapstructure:"headless"`
	Lang           string        `mapstructure:"lang"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRaces       int           `mapstructure:"max_races"`
}

// OddsConfig captures the odds endpoint connectivity.
type OddsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines odds-drop alert thresholds and routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	DropPct  float64        `mapstructure:"drop_pct"`
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	// .env 可选加载，缺失不报错
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RACEWATCHER")
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
	v.SetDefault("app.name", "racewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.align_to_clock", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.hourly_mark", 0)
	v.SetDefault("scheduler.watch_start_hour", 13)
	v.SetDefault("scheduler.card_watch_hour", 12)

	v.SetDefault("source.base_url", "https://racing.hkjc.com")
	v.SetDefault("source.headless", true)
	v.SetDefault("source.lang", "zh-HK")
	v.SetDefault("source.request_timeout", "20s")
	v.SetDefault("source.max_races", 20)

	v.SetDefault("odds.base_url", "https://info.cld.hkjc.com/graphql/base")
	v.SetDefault("odds.request_timeout", "15s")
	v.SetDefault("odds.user_agent", "racewatcher/1.0")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.drop_pct", 20.0)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
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
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.HourlyMark < 0 || c.Scheduler.HourlyMark > 59 {
		return fmt.Errorf("scheduler.hourly_mark must be within 0..59")
	}
	if c.Scheduler.WatchStartHour < 0 || c.Scheduler.WatchStartHour > 23 {
		return fmt.Errorf("scheduler.watch_start_hour must be within 0..23")
	}
	if c.Source.MaxRaces <= 0 {
		return fmt.Errorf("source.max_races must be greater than zero")
	}
	if c.Alerting.DropPct < 0 {
		return fmt.Errorf("alerting.drop_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
