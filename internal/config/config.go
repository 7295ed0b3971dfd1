// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Casino    CasinoConfig    `mapstructure:"casino"`
	Donate    DonateConfig    `mapstructure:"donate"`
	Stickers  StickersConfig  `mapstructure:"stickers"`
	Replenish ReplenishConfig `mapstructure:"replenish"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// WhitelistConfig holds the chat allow-list. Commands from chats outside
// the list are rejected before any entity lookup.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// CasinoConfig holds casino wager configuration.
type CasinoConfig struct {
	MinBet     int64 `mapstructure:"min_bet"`
	DefaultBet int64 `mapstructure:"default_bet"`
}

// DonateConfig holds the donation exchange rate.
type DonateConfig struct {
	CreditsPerStar int64 `mapstructure:"credits_per_star"`
}

// StickersConfig holds the sticker asset ids sent by /random_number.
type StickersConfig struct {
	RandomNumber []string `mapstructure:"random_number"`
}

// ReplenishConfig holds the scheduled balance-floor job settings.
// Schedule is a cron expression.
type ReplenishConfig struct {
	Schedule  string `mapstructure:"schedule"`
	Floor     int64  `mapstructure:"floor"`
	Threshold int64  `mapstructure:"threshold"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, WHITELIST_CHATS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "modbot")
	v.SetDefault("database.name", "modbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("casino.min_bet", 50)
	v.SetDefault("casino.default_bet", 50)

	v.SetDefault("donate.credits_per_star", 200)

	// Sunday 03:00 by default; the job only raises balances below the
	// threshold, so running it more often is harmless.
	v.SetDefault("replenish.schedule", "0 3 * * 0")
	v.SetDefault("replenish.floor", 5000)
	v.SetDefault("replenish.threshold", 1000)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
