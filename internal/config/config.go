package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultInstruments are the pairs tracked when none are configured.
var DefaultInstruments = []string{
	"EURUSD=X", "GBPUSD=X", "USDJPY=X",
	"AUDUSD=X", "USDCAD=X", "USDCHF=X",
	"GBPJPY=X", "EURJPY=X", "EURGBP=X",
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Commands bool   `yaml:"commands" default:"true"`
}

type DataSourceConfig struct {
	Provider       string `yaml:"provider" default:"yahoo" validate:"oneof=yahoo twelvedata mock"`
	APIKey         string `yaml:"api_key"`
	RequestsPerMin int    `yaml:"requests_per_min" default:"8" validate:"gte=1"`
}

type ScheduleConfig struct {
	Cron         string        `yaml:"cron" default:"0 */5 * * * *" validate:"required"`
	RunOnStart   bool          `yaml:"run_on_start" default:"true"`
	Workers      int           `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
	CycleTimeout time.Duration `yaml:"cycle_timeout" default:"2m" validate:"gt=0"`
}

type EngineConfig struct {
	SwingHistory int `yaml:"swing_history" default:"8" validate:"gte=2"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix" default:"fxsentinel:signal:"`
	TTL      time.Duration `yaml:"ttl" default:"10m" validate:"gt=0"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// Config holds all application configuration.
type Config struct {
	Telegram    TelegramConfig   `yaml:"telegram"`
	DataSource  DataSourceConfig `yaml:"data_source"`
	Instruments []string         `yaml:"instruments" validate:"min=1,dive,required"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	Engine      EngineConfig     `yaml:"engine"`
	Database    DatabaseConfig   `yaml:"database"`
	Redis       RedisConfig      `yaml:"redis"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Proxy       string           `yaml:"proxy"`
}

var validate = validator.New()

// Load applies struct defaults, then the YAML file at path (a missing file is not an
// error), then a .env file and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = append([]string(nil), DefaultInstruments...)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("TWELVE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Instruments = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// Validate checks field constraints and the settings that depend on each other.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DataSource.Provider == "twelvedata" && c.DataSource.APIKey == "" {
		return fmt.Errorf("data_source.api_key is required for twelvedata")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, id := range c.Instruments {
		if seen[id] {
			return fmt.Errorf("duplicate instrument %q", id)
		}
		seen[id] = true
	}
	return nil
}

// TelegramEnabled reports whether status messages should be delivered.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
