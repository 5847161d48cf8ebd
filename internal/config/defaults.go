package config

import "time"

const (
	DefaultLogLevel = "info"

	DefaultWebhookListen = ":8080"
	DefaultWebhookPath   = "/webhook"
	DefaultBacklogSize   = 500

	DefaultDBPath = "data/tgassist.db"

	DefaultAIProvider    = "gemini"
	DefaultAITemperature = float32(1.0)
	DefaultAITimeout     = 2 * time.Minute
	DefaultAIMaxRetries  = 3
	DefaultAIRetryDelay  = 2 * time.Second

	DefaultLanguage      = "zh"
	DefaultTimezone      = "Local"
	DefaultWizardTTL     = 10 * time.Minute
	DefaultHistoryLimit  = 100
	DefaultActionsWindow = 50
)

// defaults is applied to viper before any file or environment source. Keys without a
// useful default are still listed so BOT_* environment variables can bind to them.
var defaults = map[string]any{
	"log.level": DefaultLogLevel,
	"log.json":  false,

	"telegram.token":                "",
	"telegram.owner_id":             0,
	"telegram.backlog_size":         DefaultBacklogSize,
	"telegram.webhook.enabled":      false,
	"telegram.webhook.listen":       DefaultWebhookListen,
	"telegram.webhook.url":          "",
	"telegram.webhook.path":         DefaultWebhookPath,
	"telegram.webhook.secret_token": "",

	"database.path": DefaultDBPath,

	"ai.provider":    DefaultAIProvider,
	"ai.api_key":     "",
	"ai.base_url":    "",
	"ai.model":       "",
	"ai.models":      []string{},
	"ai.temperature": DefaultAITemperature,
	"ai.timeout":     DefaultAITimeout,
	"ai.max_retries": DefaultAIMaxRetries,
	"ai.retry_delay": DefaultAIRetryDelay,

	"bot.default_language": DefaultLanguage,
	"bot.timezone":         DefaultTimezone,
	"bot.wizard_ttl":       DefaultWizardTTL,
	"bot.history_limit":    DefaultHistoryLimit,
	"bot.actions_window":   DefaultActionsWindow,

	"scheduler.tasks": map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * 0"},
		"session_sweep":   map[string]any{"enabled": true, "schedule": "0 */5 * * * *"},
	},
}
