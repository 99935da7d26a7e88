package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Sources  SourcesConfig  `mapstructure:"sources"`
	Signups  SignupsConfig  `mapstructure:"signups"`
	Activity ActivityConfig `mapstructure:"activity"`
	Output   OutputConfig   `mapstructure:"output"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourcesConfig holds the two input locations
type SourcesConfig struct {
	Signups  SourceConfig `mapstructure:"signups"`
	Platform SourceConfig `mapstructure:"platform"`
}

// SourceConfig describes where one dataset is read from.
// Location is either a filesystem path or an http(s) URL.
type SourceConfig struct {
	Location       string        `mapstructure:"location"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// SignupsConfig holds cohort aggregation settings
type SignupsConfig struct {
	DateColumn  string `mapstructure:"date_column"`
	CountColumn string `mapstructure:"count_column"`
	TargetYears []int  `mapstructure:"target_years"`
}

// ActivityConfig holds activity classification settings
type ActivityConfig struct {
	LastAccessField string `mapstructure:"last_access_field"`
	DailyWindowDays int    `mapstructure:"daily_window_days"`
	Timezone        string `mapstructure:"timezone"`
}

// OutputConfig holds where the dashboard document is written
type OutputConfig struct {
	FilePath        string      `mapstructure:"file_path"` // empty means stdout
	FilePermissions os.FileMode `mapstructure:"file_permissions"`
	DirPermissions  os.FileMode `mapstructure:"dir_permissions"`
}

// TelegramConfig holds Telegram digest configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("SIGNUP_TRENDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source defaults
	for _, key := range []string{"sources.signups", "sources.platform"} {
		v.SetDefault(key+".timeout", "30s")
		v.SetDefault(key+".max_retries", 3)
		v.SetDefault(key+".retry_delay_base", "1s")
	}
	v.SetDefault("sources.signups.location", "./data/wp_users.csv")
	v.SetDefault("sources.platform.location", "./data/platform_users.json")

	// Signup defaults
	v.SetDefault("signups.date_column", "signup_date")
	v.SetDefault("signups.count_column", "signups")
	v.SetDefault("signups.target_years", []int{2024, 2025})

	// Activity defaults
	v.SetDefault("activity.last_access_field", "lastaccess")
	v.SetDefault("activity.daily_window_days", 30)
	v.SetDefault("activity.timezone", "Local")

	// Output defaults
	v.SetDefault("output.file_path", "")
	v.SetDefault("output.file_permissions", 0o644)
	v.SetDefault("output.dir_permissions", 0o755)

	// Telegram defaults
	// Secrets usually come from the environment, so the keys must exist
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate sources
	if c.Sources.Signups.Location == "" {
		return fmt.Errorf("sources.signups.location is required")
	}
	if c.Sources.Platform.Location == "" {
		return fmt.Errorf("sources.platform.location is required")
	}
	for name, s := range map[string]SourceConfig{"signups": c.Sources.Signups, "platform": c.Sources.Platform} {
		if s.Timeout < 0 {
			return fmt.Errorf("sources.%s.timeout must not be negative", name)
		}
		if s.MaxRetries < 0 {
			return fmt.Errorf("sources.%s.max_retries must not be negative", name)
		}
	}

	// Validate signups
	if c.Signups.DateColumn == "" {
		return fmt.Errorf("signups.date_column is required")
	}
	if c.Signups.CountColumn == "" {
		return fmt.Errorf("signups.count_column is required")
	}
	if len(c.Signups.TargetYears) == 0 {
		return fmt.Errorf("signups.target_years must contain at least one year")
	}
	for _, y := range c.Signups.TargetYears {
		if y < 1000 || y > 9999 {
			return fmt.Errorf("signups.target_years: %d is not a four-digit year", y)
		}
	}

	// Validate activity
	if c.Activity.LastAccessField == "" {
		return fmt.Errorf("activity.last_access_field is required")
	}
	if c.Activity.DailyWindowDays < 1 {
		return fmt.Errorf("activity.daily_window_days must be at least 1")
	}
	if _, err := c.Activity.Location(); err != nil {
		return fmt.Errorf("activity.timezone: %w", err)
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Location resolves the configured timezone used for daily windows.
func (a ActivityConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}
