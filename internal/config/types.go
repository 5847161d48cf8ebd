// Package config manages application configuration from environment variables,
// an optional YAML file, a .env file and default values.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via environment
// variables prefixed with BOT_ (e.g. BOT_TELEGRAM_TOKEN) or through config.yaml.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Bot       BotConfig       `mapstructure:"bot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credentials and transport mode.
type TelegramConfig struct {
	Token   string        `mapstructure:"token"    validate:"required"`
	OwnerID int64         `mapstructure:"owner_id" validate:"required,gt=0"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	// BacklogSize bounds the per-chat buffer of recently seen messages replayed by /sync.
	BacklogSize int `mapstructure:"backlog_size" validate:"min=0,max=10000"`
}

// WebhookConfig enables webhook delivery instead of long polling.
type WebhookConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Listen      string `mapstructure:"listen"       validate:"required_if=Enabled true"`
	URL         string `mapstructure:"url"          validate:"required_if=Enabled true,omitempty,url"`
	Path        string `mapstructure:"path"         validate:"required,startswith=/"`
	SecretToken string `mapstructure:"secret_token"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AIConfig selects and tunes the generative model provider.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"    validate:"required,oneof=gemini openai"`
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	BaseURL     string        `mapstructure:"base_url"    validate:"omitempty,url"`
	Model       string        `mapstructure:"model"`
	Models      []string      `mapstructure:"models"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=0,max=1m"`
}

// BotConfig holds assistant behaviour settings.
type BotConfig struct {
	DefaultLanguage string        `mapstructure:"default_language" validate:"required,oneof=zh en"`
	Timezone        string        `mapstructure:"timezone"         validate:"required"`
	WizardTTL       time.Duration `mapstructure:"wizard_ttl"       validate:"min=1m,max=24h"`
	HistoryLimit    int           `mapstructure:"history_limit"    validate:"min=5,max=1000"`
	ActionsWindow   int           `mapstructure:"actions_window"   validate:"min=1,max=1000"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig schedules one registered task with a cron expression (seconds field allowed).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// Location resolves the configured timezone. Validation guarantees it loads.
func (c BotConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
